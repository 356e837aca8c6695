package server

import (
	"fmt"
	"io/ioutil"
	"os"

	js "github.com/buger/jsonparser"
)

// Data the homepage template is rendered with. Read once at startup, never from a request
type SiteInfo struct {
	// <title> and heading of the homepage
	Title string
	// meta description
	Description string
	// meta author
	Author string
	// canonical URL of the site, i.e. https://example.com
	BaseURL string
}

// used when there is no site.json
var defaultSiteInfo = SiteInfo{
	Title:       "Calligraphy",
	Description: "Brush calligraphy in the browser.",
}

// Read site metadata from path. A missing file gives the defaults, a malformed one is an error
func loadSiteInfo(path string) (SiteInfo, error) {
	info := defaultSiteInfo

	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("reading site info: %w", err)
	}

	fields := map[string]*string{
		"title":       &info.Title,
		"description": &info.Description,
		"author":      &info.Author,
		"base_url":    &info.BaseURL,
	}
	err = js.ObjectEach(data, func(key []byte, value []byte, dataType js.ValueType, _ int) error {
		dst, ok := fields[string(key)]
		if !ok {
			return nil
		}
		if dataType != js.String {
			return fmt.Errorf("%s must be a string", key)
		}
		parsed, err := js.ParseString(value)
		if err != nil {
			return err
		}
		*dst = parsed
		return nil
	})
	if err != nil {
		return info, fmt.Errorf("parsing %s: %w", path, err)
	}
	return info, nil
}
