/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"reflect"
	"sort"
	"strings"
)

// keyPaths indexes the koanf paths of Config. Map fields accept any sub-key.
type keyPaths struct {
	leaves map[string]bool
	flat   map[string]string // path with dots replaced by underscores -> path
	maps   []string
}

func newKeyPaths() *keyPaths {
	p := &keyPaths{leaves: make(map[string]bool), flat: make(map[string]string)}
	p.walk(reflect.TypeOf(Config{}), "")
	return p
}

func (p *keyPaths) walk(t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		path := tag
		if prefix != "" {
			path = prefix + "." + tag
		}
		switch f.Type.Kind() {
		case reflect.Struct:
			p.walk(f.Type, path)
		case reflect.Map:
			p.maps = append(p.maps, path)
		default:
			p.leaves[path] = true
			p.flat[strings.ReplaceAll(path, ".", "_")] = path
		}
	}
}

func (p *keyPaths) known(key string) bool {
	if p.leaves[key] {
		return true
	}
	for _, m := range p.maps {
		if strings.HasPrefix(key, m+".") && len(key) > len(m)+1 {
			return true
		}
	}
	return false
}

// envMapper turns FAMILYSTORE_* variable names into koanf paths and
// remembers the ones that name no configuration field.
type envMapper struct {
	paths   *keyPaths
	unknown []string
}

func newEnvMapper() *envMapper {
	return &envMapper{paths: newKeyPaths()}
}

// key returns the koanf path for an environment variable, or "" to skip it.
func (m *envMapper) key(s string) string {
	if s == FileEnv {
		return ""
	}
	raw := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	key := raw
	if strings.Contains(raw, "__") {
		key = strings.ReplaceAll(raw, "__", ".")
	} else if path, ok := m.paths.flat[raw]; ok {
		key = path
	}
	if !m.paths.known(key) {
		m.unknown = append(m.unknown, s)
		return ""
	}
	return key
}

func (m *envMapper) unknownVars() []string {
	out := append([]string(nil), m.unknown...)
	sort.Strings(out)
	return out
}
