package manifest

// Summary counts what a manifest contains
type Summary struct {
	Version       int
	BasePath      string
	Redirects     int
	Internal      int
	BeforeFiles   int
	AfterFiles    int
	Fallback      int
	FlatRewrites  bool
	DynamicRoutes int
	StaticRoutes  int
	Locales       []string
	Has           map[ConditionType]int
	Missing       map[ConditionType]int
}

// Summarize walks the redirect and rewrite lists of m
func Summarize(m *RoutesManifest) Summary {
	s := Summary{
		Version:       m.Version,
		BasePath:      m.BasePath,
		Redirects:     len(m.Redirects),
		BeforeFiles:   len(m.Rewrites.BeforeFiles),
		AfterFiles:    len(m.Rewrites.AfterFiles),
		Fallback:      len(m.Rewrites.Fallback),
		FlatRewrites:  m.Rewrites.Flat,
		DynamicRoutes: len(m.DynamicRoutes),
		StaticRoutes:  len(m.StaticRoutes),
		Has:           make(map[ConditionType]int),
		Missing:       make(map[ConditionType]int),
	}
	if m.I18n != nil {
		s.Locales = m.I18n.Locales
	}

	lists := [][]Rule{m.Redirects, m.Rewrites.BeforeFiles, m.Rewrites.AfterFiles, m.Rewrites.Fallback}
	for _, list := range lists {
		for _, r := range list {
			for _, c := range r.Has {
				s.Has[c.Type]++
			}
			for _, c := range r.Missing {
				s.Missing[c.Type]++
			}
		}
	}
	for _, r := range m.Redirects {
		if r.Internal {
			s.Internal++
		}
	}
	return s
}
