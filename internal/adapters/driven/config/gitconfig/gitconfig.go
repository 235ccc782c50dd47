// Package gitconfig reads credential helper options from git configuration
// files using go-git's config parser.
package gitconfig

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	format "github.com/go-git/go-git/v5/plumbing/format/config"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.GitConfig = (*Reader)(nil)

const credentialSection = "credential"

// Reader merges credential options from an ordered list of git configs.
// Later configs override earlier ones.
type Reader struct {
	configs []*config.Config
}

// New creates a reader over the given configs, lowest precedence first.
func New(configs ...*config.Config) *Reader {
	return &Reader{configs: configs}
}

// Parse creates a reader from raw git config text.
func Parse(r io.Reader) (*Reader, error) {
	cfg, err := config.ReadConfig(r)
	if err != nil {
		return nil, fmt.Errorf("parse git config: %w", err)
	}
	return New(cfg), nil
}

// Load reads system and global git configuration, plus the local config of
// the repository containing dir when there is one. Missing files are not
// an error.
func Load(dir string) (*Reader, error) {
	var configs []*config.Config
	for _, scope := range []config.Scope{config.SystemScope, config.GlobalScope} {
		cfg, err := config.LoadConfig(scope)
		if err != nil {
			return nil, fmt.Errorf("load git config: %w", err)
		}
		configs = append(configs, cfg)
	}

	if dir != "" {
		repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
		switch {
		case err == nil:
			cfg, err := repo.Config()
			if err != nil {
				return nil, fmt.Errorf("load repository config: %w", err)
			}
			configs = append(configs, cfg)
		case errors.Is(err, git.ErrRepositoryNotExists):
		default:
			return nil, fmt.Errorf("open repository: %w", err)
		}
	}
	return New(configs...), nil
}

// CredentialOptions returns the credential.* options that apply to target.
// Within each config, the generic [credential] section is applied first,
// then every matching [credential "<url>"] section from least to most
// specific.
func (r *Reader) CredentialOptions(target domain.TargetURI) (map[string]string, error) {
	out := make(map[string]string)
	for _, cfg := range r.configs {
		if cfg == nil || cfg.Raw == nil || !cfg.Raw.HasSection(credentialSection) {
			continue
		}
		section := cfg.Raw.Section(credentialSection)
		apply(out, section.Options)

		var matches []*format.Subsection
		for _, sub := range section.Subsections {
			if Matches(sub.Name, target) {
				matches = append(matches, sub)
			}
		}
		sort.SliceStable(matches, func(i, j int) bool {
			return specificity(matches[i].Name) < specificity(matches[j].Name)
		})
		for _, sub := range matches {
			apply(out, sub.Options)
		}
	}
	return out, nil
}

func apply(dst map[string]string, opts format.Options) {
	for _, o := range opts {
		dst[strings.ToLower(o.Key)] = o.Value
	}
}

// Matches reports whether a credential.<pattern> section applies to target.
// Scheme and host must match exactly (host case-insensitively), the
// pattern path must be a prefix of the target path on a segment boundary,
// and a username in the pattern must equal the target username.
func Matches(pattern string, target domain.TargetURI) bool {
	if target.IsZero() {
		return false
	}
	u, err := url.Parse(pattern)
	if err != nil || u.Host == "" {
		// A bare host such as "example.com" is treated as https.
		u, err = url.Parse("https://" + pattern)
		if err != nil || u.Host == "" {
			return false
		}
	}
	if !strings.EqualFold(u.Scheme, target.Scheme()) {
		return false
	}
	if !strings.EqualFold(u.Host, target.Host()) {
		return false
	}
	if u.User != nil && u.User.Username() != "" && u.User.Username() != target.Username() {
		return false
	}

	prefix := strings.TrimSuffix(u.Path, "/")
	if prefix == "" {
		return true
	}
	path := target.Path()
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func specificity(pattern string) int {
	u, err := url.Parse(pattern)
	if err != nil {
		return 0
	}
	n := len(strings.TrimSuffix(u.Path, "/"))
	if u.User != nil {
		n++
	}
	return n
}
