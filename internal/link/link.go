// Package link builds and parses the shareable URL for a note.
//
// Format: <origin>/<base-path>#/note/<id>. The id lives in the fragment so it
// never reaches server access logs.
package link

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/amirk1998/secret-notes/pkg/errors"
	"github.com/amirk1998/secret-notes/pkg/validator"
)

const fragmentPrefix = "/note/"

var ids = validator.New()

// Build returns the link for id under baseURL. Trailing slashes on the base are dropped.
func Build(baseURL, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.ErrInvalidNoteID
	}

	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", errors.ErrInvalidBaseURL, baseURL)
	}

	base := u.Scheme + "://" + u.Host + strings.TrimRight(u.Path, "/")
	return base + "/#" + fragmentPrefix + id, nil
}

// ParseID extracts the note id from a link. A bare id is accepted as-is.
func ParseID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.ErrInvalidLink
	}

	if ids.ValidateNoteID(raw) == nil {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidLink, err)
	}

	id, ok := strings.CutPrefix(u.Fragment, fragmentPrefix)
	if !ok {
		return "", errors.ErrInvalidLink
	}
	id = strings.TrimRight(id, "/")

	if err := ids.ValidateNoteID(id); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidLink, err)
	}

	return id, nil
}
