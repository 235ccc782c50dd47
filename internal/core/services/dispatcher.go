package services

import (
	"context"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
	"github.com/custodia-labs/git-credential-broker/internal/logger"
)

// Host patterns used by auto detection.
var (
	githubHosts    = []string{"github.com"}
	bitbucketHosts = []string{"bitbucket.org"}
)

type resolution struct {
	authority domain.AuthorityType
	tenant    string
}

// Dispatcher decides which authority serves a target.
//
// An explicitly configured authority always wins. In auto mode the probes
// run in a fixed order: Azure DevOps tenant, GitHub host, Bitbucket host,
// then Basic (or NTLM when the server only offers integrated auth).
type Dispatcher struct {
	tenants driven.TenantDetector
	ntlm    driven.NTLMProber

	mu    sync.Mutex
	cache map[string]resolution
}

// NewDispatcher creates a dispatcher. Either prober may be nil.
func NewDispatcher(tenants driven.TenantDetector, ntlm driven.NTLMProber) *Dispatcher {
	return &Dispatcher{
		tenants: tenants,
		ntlm:    ntlm,
		cache:   make(map[string]resolution),
	}
}

// Resolve sets op.Authority (and op.Tenant for Azure DevOps) and returns
// the authority. Results are cached per host for the dispatcher's lifetime.
func (d *Dispatcher) Resolve(ctx context.Context, op *domain.Operation) domain.AuthorityType {
	if op.IsResolved() && !(op.Authority == domain.AuthorityAzureDirectory && op.Tenant == "") {
		return op.Authority
	}

	hostKey := op.Target.BaseURL()
	d.mu.Lock()
	cached, ok := d.cache[hostKey]
	d.mu.Unlock()
	if ok && (!op.IsResolved() || cached.authority == op.Authority) {
		op.Authority, op.Tenant = cached.authority, cached.tenant
		return op.Authority
	}

	logger.Section("Authority Detection")
	res := d.detect(ctx, op)
	logger.Debug("Resolved %s to %s", hostKey, res.authority)

	d.mu.Lock()
	d.cache[hostKey] = res
	d.mu.Unlock()

	op.Authority, op.Tenant = res.authority, res.tenant
	return op.Authority
}

func (d *Dispatcher) detect(ctx context.Context, op *domain.Operation) resolution {
	target := op.Target

	if op.Authority == domain.AuthorityAzureDirectory {
		tenant, _ := d.detectTenant(ctx, target)
		return resolution{authority: domain.AuthorityAzureDirectory, tenant: tenant}
	}

	if tenant, isVSTS := d.detectTenant(ctx, target); isVSTS {
		if tenant == "" {
			return resolution{authority: domain.AuthorityMicrosoftAccount}
		}
		return resolution{authority: domain.AuthorityAzureDirectory, tenant: tenant}
	}

	host := target.Hostname()
	if IsGitHubHost(host) {
		return resolution{authority: domain.AuthorityGitHub}
	}
	if IsBitbucketHost(host) {
		return resolution{authority: domain.AuthorityBitbucket}
	}

	if d.ntlm != nil && d.ntlm.SupportsNTLM(ctx, target) {
		return resolution{authority: domain.AuthorityNTLM}
	}
	return resolution{authority: domain.AuthorityBasic}
}

func (d *Dispatcher) detectTenant(ctx context.Context, target domain.TargetURI) (string, bool) {
	if d.tenants == nil {
		return "", false
	}
	return d.tenants.DetectTenant(ctx, target)
}

// IsGitHubHost matches github.com, its subdomains and enterprise hosts
// whose first label starts with "github".
func IsGitHubHost(host string) bool {
	return matchesHost(host, githubHosts) || strings.HasPrefix(firstLabel(host), "github")
}

// IsBitbucketHost matches bitbucket.org, its subdomains and self-hosted
// servers whose first label is "bitbucket".
func IsBitbucketHost(host string) bool {
	return matchesHost(host, bitbucketHosts) || firstLabel(host) == "bitbucket"
}

func matchesHost(host string, domains []string) bool {
	host = strings.ToLower(host)
	return lo.ContainsBy(domains, func(d string) bool {
		return host == d || strings.HasSuffix(host, "."+d)
	})
}

func firstLabel(host string) string {
	label, _, _ := strings.Cut(strings.ToLower(host), ".")
	return label
}
