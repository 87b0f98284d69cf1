package registry

// Icon returns the icon reference of the module named by key.
func (r *Registry) Icon(key string) string {
	d, _ := r.Lookup(key)
	return d.Icon
}

// Description returns the description of the module named by key.
func (r *Registry) Description(key string) string {
	d, _ := r.Lookup(key)
	return d.Description
}

// Library returns the platform-neutral library identifier of the module
// named by key, or "" when the module is unknown.
func (r *Registry) Library(key string) string {
	d, _ := r.Lookup(key)
	return d.Library
}

// Displayer returns the title of the module that displays objects for the
// module named by key. Modules without a delegate display themselves.
func (r *Registry) Displayer(key string) string {
	d, ok := r.Lookup(key)
	if !ok {
		return ""
	}
	if d.Displayer != "" {
		return d.Displayer
	}
	return d.Title
}

// VersionInfo lists host component versions followed by one entry per
// module, named by title or, for headless modules, by internal name.
func (r *Registry) VersionInfo(host ...VersionEntry) []VersionEntry {
	list := r.List()
	result := make([]VersionEntry, 0, len(host)+len(list))
	result = append(result, host...)
	for _, d := range list {
		name := d.Title
		if name == "" {
			name = d.Name
		}
		result = append(result, VersionEntry{Name: name, Version: d.Version})
	}
	return result
}
