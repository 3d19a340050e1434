// Package embed defines the normalized rich-embed record returned to callers
// and the tagged error codes every pipeline step reports.
package embed

import (
	"errors"
	"fmt"
)

// Type identifies how a client should render an Embed.
type Type string

// Embed types understood by clients.
const (
	TypeRich   Type = "Rich"
	TypeIframe Type = "Iframe"
	TypeSite   Type = "Site"
)

// FileType identifies the media kind of an attached file.
type FileType string

// File types that can be attached to an Embed.
const (
	FileTypeImage FileType = "Image"
	FileTypeVideo FileType = "Video"
)

// Embed is the normalized preview of a URL's content.
type Embed struct {
	Type         Type          `json:"type" mapstructure:"type"`
	Title        string        `json:"title,omitempty" mapstructure:"title"`
	Description  string        `json:"description,omitempty" mapstructure:"description"`
	URL          string        `json:"url,omitempty" mapstructure:"url"`
	Color        *int          `json:"color,omitempty" mapstructure:"color"`
	Author       *Author       `json:"author,omitempty" mapstructure:"author"`
	Provider     *Provider     `json:"provider,omitempty" mapstructure:"provider"`
	Files        []File        `json:"files,omitempty" mapstructure:"files"`
	IframeSource *IframeSource `json:"iframeSource,omitempty" mapstructure:"iframeSource"`
}

// Author describes who published the content.
type Author struct {
	Name    string `json:"name,omitempty" mapstructure:"name"`
	URL     string `json:"url,omitempty" mapstructure:"url"`
	IconURL string `json:"iconUrl,omitempty" mapstructure:"iconUrl"`
}

// Provider describes the site or service hosting the content.
type Provider struct {
	Name string `json:"name,omitempty" mapstructure:"name"`
	URL  string `json:"url,omitempty" mapstructure:"url"`
}

// File is a media attachment. URL points at the media proxy, RawURL at the upstream.
type File struct {
	URL       string   `json:"url" mapstructure:"url"`
	RawURL    string   `json:"rawUrl" mapstructure:"rawUrl"`
	Type      FileType `json:"type" mapstructure:"type"`
	Width     *int     `json:"width,omitempty" mapstructure:"width"`
	Height    *int     `json:"height,omitempty" mapstructure:"height"`
	ThumbHash string   `json:"thumbHash,omitempty" mapstructure:"thumbHash"`
	Name      string   `json:"name,omitempty" mapstructure:"name"`
}

// IframeSource points at an embeddable interactive player.
type IframeSource struct {
	Provider string `json:"provider" mapstructure:"provider"`
	URL      string `json:"url" mapstructure:"url"`
}

// Validate checks the structural invariants of an Embed.
func (e *Embed) Validate() error {
	if e == nil {
		return errors.New("embed is nil")
	}
	switch e.Type {
	case TypeIframe:
		if e.IframeSource == nil || e.IframeSource.URL == "" {
			return errors.New("iframe embed requires an iframe source")
		}
	case TypeRich, TypeSite:
		if e.IframeSource != nil {
			return fmt.Errorf("%s embed must not carry an iframe source", e.Type)
		}
	default:
		return fmt.Errorf("unknown embed type %q", e.Type)
	}
	for i, f := range e.Files {
		if f.URL == "" || f.RawURL == "" {
			return fmt.Errorf("file %d requires url and rawUrl", i)
		}
	}
	return nil
}
