package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	"github.com/jxtool/jx/pkg/httputil"
	"github.com/jxtool/jx/pkg/maven"
)

// maxParentDepth bounds the parent POM chain. Real projects rarely go
// past four or five levels; anything deeper is treated as malformed.
const maxParentDepth = 10

// HTTPClient fetches POMs from Maven-style repositories over HTTP.
//
// Repositories are tried in order; the first that has the POM wins.
// Transient failures (timeouts, 5xx) are retried with exponential
// backoff before moving on is even considered; a 404 skips straight to
// the next repository.
//
// HTTPClient is stateless apart from the underlying http.Client and is
// safe for concurrent use.
type HTTPClient struct {
	http  *http.Client
	repos []Repository
}

// NewHTTPClient creates a client that queries repos in order. With no
// repositories configured it falls back to Maven Central.
func NewHTTPClient(repos ...Repository) *HTTPClient {
	if len(repos) == 0 {
		repos = []Repository{MavenCentral}
	}
	return &HTTPClient{http: httputil.NewClient(), repos: repos}
}

// FetchMetadata retrieves and flattens the POM for coord: parent POMs
// are fetched and folded in, dependencyManagement tables are merged
// (child wins), and dependencies declared without a version are filled
// from the merged table.
func (c *HTTPClient) FetchMetadata(ctx context.Context, coord maven.Coordinate) (*Metadata, error) {
	pom, source, err := c.fetchPOM(ctx, coord)
	if err != nil {
		return nil, err
	}

	props := maps.Clone(map[string]string(pom.Properties))
	if props == nil {
		props = make(map[string]string)
	}
	managed := make(map[string]string)
	mergeManaged(managed, managedVersions(pom, props))

	// Walk the parent chain, merging properties and managed versions.
	// Child declarations always win over inherited ones.
	var parent *maven.Coordinate
	for cur, depth := pom, 0; cur.Parent != nil && depth < maxParentDepth; depth++ {
		pc := maven.Coordinate{
			Group:    cur.Parent.GroupID,
			Artifact: cur.Parent.ArtifactID,
			Version:  cur.Parent.Version,
		}
		if parent == nil {
			parent = &pc
		}
		parentPOM, _, err := c.fetchPOM(ctx, pc)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				break // orphaned parent reference, use what we have
			}
			return nil, fmt.Errorf("parent %s: %w", pc, err)
		}
		for k, v := range parentPOM.Properties {
			if _, ok := props[k]; !ok {
				props[k] = v
			}
		}
		mergeManaged(managed, managedVersions(parentPOM, props))
		cur = parentPOM
	}

	deps := convertDependencies(pom, props, pom.Dependencies)
	for i := range deps {
		if deps[i].Version == "" {
			deps[i].Version = managed[deps[i].ID()]
		}
	}

	return &Metadata{
		Coordinate:   coord,
		Dependencies: deps,
		Parent:       parent,
		Managed:      managed,
		Source:       source,
	}, nil
}

// fetchPOM tries each repository in order and returns the parsed POM
// plus the base URL it came from.
func (c *HTTPClient) fetchPOM(ctx context.Context, coord maven.Coordinate) (*pomProject, string, error) {
	var lastErr error
	for _, repo := range c.repos {
		url := PomURL(repo.URL, coord)
		data, err := c.get(ctx, url)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				lastErr = fmt.Errorf("%w: %s in %s", ErrNotFound, coord, repo.Name)
				continue
			}
			return nil, "", err
		}
		pom, err := parsePOM(data)
		if err != nil {
			return nil, "", fmt.Errorf("%s from %s: %w", coord, repo.Name, err)
		}
		return pom, repo.URL, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %s", ErrNotFound, coord)
	}
	return nil, "", lastErr
}

func (c *HTTPClient) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
		}
		defer resp.Body.Close()

		if err := CheckStatus(resp.StatusCode); err != nil {
			return err
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
		}
		return nil
	})
	return body, err
}

// CheckStatus maps an HTTP status code onto the registry error
// taxonomy: 404 is a permanent ErrNotFound, 5xx is a retryable
// ErrNetwork, anything else unexpected is a permanent ErrNetwork.
func CheckStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// PomURL returns the full POM URL for coord under a repository base URL.
func PomURL(base string, coord maven.Coordinate) string {
	return strings.TrimSuffix(base, "/") + "/" + coord.RepoPath() + "/" + coord.PomName()
}

// JarURL returns the full artifact URL for coord under a repository
// base URL, with an optional classifier.
func JarURL(base string, coord maven.Coordinate, classifier string) string {
	return strings.TrimSuffix(base, "/") + "/" + coord.RepoPath() + "/" + coord.JarName(classifier)
}

func mergeManaged(dst, src map[string]string) {
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}
