package config

import "github.com/nao1215/coursecrawl/internal/extract"

// SiteConfig holds the settings of one catalog host.
type SiteConfig struct {
	// Cookie is sent with every request to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// QueryToken overrides the index query parameter.
	QueryToken string `yaml:"queryToken,omitempty"`

	// LinkRoot overrides the prefix of relative course links.
	LinkRoot string `yaml:"linkRoot,omitempty"`

	// Selectors override individual field selectors. Empty fields keep the
	// default.
	Selectors extract.Selectors `yaml:"selectors,omitempty"`
}

// File represents the structure of the .coursecrawl site file.
type File struct {
	// Sites maps host names (e.g. "coursera.org") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to all sites unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for host, merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if siteConfig.QueryToken != "" {
		result.QueryToken = siteConfig.QueryToken
	}
	if siteConfig.LinkRoot != "" {
		result.LinkRoot = siteConfig.LinkRoot
	}
	result.Selectors = siteConfig.Selectors.Merge(result.Selectors)

	return result
}
