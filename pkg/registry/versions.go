package registry

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// repoMetadata is the subset of maven-metadata.xml we read to discover
// published versions of an artifact.
type repoMetadata struct {
	XMLName    xml.Name `xml:"metadata"`
	Versioning struct {
		Latest   string   `xml:"latest"`
		Release  string   `xml:"release"`
		Versions []string `xml:"versions>version"`
	} `xml:"versioning"`
}

// MetadataURL returns the maven-metadata.xml URL for an artifact
// identity under a repository base URL.
func MetadataURL(base, group, artifact string) string {
	return strings.TrimSuffix(base, "/") + "/" +
		strings.ReplaceAll(group, ".", "/") + "/" + artifact + "/maven-metadata.xml"
}

// LatestVersion looks up the newest released version of an artifact,
// trying each configured repository in order. It prefers the release
// marker over the latest marker, falling back to the last listed
// version for artifacts whose metadata carries neither.
func (c *HTTPClient) LatestVersion(ctx context.Context, group, artifact string) (string, error) {
	var lastErr error
	for _, repo := range c.repos {
		data, err := c.get(ctx, MetadataURL(repo.URL, group, artifact))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				lastErr = fmt.Errorf("%w: %s:%s in %s", ErrNotFound, group, artifact, repo.Name)
				continue
			}
			return "", err
		}

		var meta repoMetadata
		if err := xml.Unmarshal(data, &meta); err != nil {
			return "", fmt.Errorf("parse metadata for %s:%s: %w", group, artifact, err)
		}
		switch {
		case meta.Versioning.Release != "":
			return meta.Versioning.Release, nil
		case meta.Versioning.Latest != "":
			return meta.Versioning.Latest, nil
		case len(meta.Versioning.Versions) > 0:
			return meta.Versioning.Versions[len(meta.Versioning.Versions)-1], nil
		}
		return "", fmt.Errorf("no versions published for %s:%s in %s", group, artifact, repo.Name)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %s:%s", ErrNotFound, group, artifact)
	}
	return "", lastErr
}
