package services

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

// ProxyRule forwards matching requests to Target.
type ProxyRule struct {
	Name   string
	Prefix string
	Match  func(r *http.Request) bool
	Target *url.URL
}

func (p ProxyRule) matches(r *http.Request) bool {
	path := r.URL.Path
	if path != p.Prefix && !strings.HasPrefix(path, strings.TrimRight(p.Prefix, "/")+"/") {
		return false
	}
	return p.Match == nil || p.Match(r)
}

// DevProxy mirrors the front-end dev server's proxy table.
type DevProxy struct {
	rules   []ProxyRule
	proxies []*httputil.ReverseProxy
}

func NewDevProxy(rules []ProxyRule) *DevProxy {
	d := &DevProxy{rules: rules}
	for _, rule := range rules {
		rp := httputil.NewSingleHostReverseProxy(rule.Target)
		name := rule.Name
		rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			log.Printf("proxy %s: %s %s: %v", name, r.Method, r.URL.Path, err)
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		}
		d.proxies = append(d.proxies, rp)
	}
	return d
}

// DefaultProxyRules builds the /api, /member/login, /ingredient and /react rules.
func DefaultProxyRules(apiTarget, reactTarget string) ([]ProxyRule, error) {
	api, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("api proxy target: %w", err)
	}
	react, err := url.Parse(reactTarget)
	if err != nil {
		return nil, fmt.Errorf("react proxy target: %w", err)
	}
	return []ProxyRule{
		{Name: "api", Prefix: "/api", Target: api},
		{
			Name:   "member-login",
			Prefix: "/member/login",
			Match:  func(r *http.Request) bool { return r.Method == http.MethodPost },
			Target: api,
		},
		{
			Name:   "ingredient",
			Prefix: "/ingredient",
			Match:  func(r *http.Request) bool { return !acceptsHTML(r) },
			Target: api,
		},
		{Name: "react", Prefix: "/react", Target: react},
	}, nil
}

// Forward proxies r if a rule matches and reports whether it did.
func (d *DevProxy) Forward(w http.ResponseWriter, r *http.Request) bool {
	for i, rule := range d.rules {
		if rule.matches(r) {
			d.proxies[i].ServeHTTP(w, r)
			return true
		}
	}
	return false
}

func (d *DevProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !d.Forward(w, r) {
		http.NotFound(w, r)
	}
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
