package vsts

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
	"github.com/custodia-labs/git-credential-broker/internal/logger"
)

// Ensure Detector implements the interface.
var _ driven.TenantDetector = (*Detector)(nil)

// HeaderResourceTenant carries the backing Azure AD tenant of an
// organization. An all-zero GUID means Microsoft Account.
const HeaderResourceTenant = "X-VSS-ResourceTenant"

// IsVSTSHost returns true for Azure DevOps Services hosts.
func IsVSTSHost(target domain.TargetURI) bool {
	host := target.Hostname()
	return host == devAzureHost ||
		strings.HasSuffix(host, "."+devAzureHost) ||
		strings.HasSuffix(host, "."+legacyHostSuffix)
}

// Detector discovers the tenant behind a target with one unauthenticated
// request.
type Detector struct {
	network driven.Network
	log     logrus.FieldLogger
}

// NewDetector creates a tenant detector.
func NewDetector(network driven.Network) *Detector {
	return &Detector{network: network, log: logger.For("vsts")}
}

// DetectTenant reads X-VSS-ResourceTenant from the target root. A VSTS host
// that does not answer, or answers with the empty GUID, is a Microsoft
// Account organization.
func (d *Detector) DetectTenant(ctx context.Context, target domain.TargetURI) (string, bool) {
	if target.IsZero() {
		return "", false
	}
	known := IsVSTSHost(target)
	log := d.log.WithField("host", target.Host())

	resp, err := d.network.Send(ctx, driven.Request{
		Method:     http.MethodGet,
		URL:        target.BaseURL() + "/",
		NoRedirect: true,
	})
	if err != nil {
		log.Debugf("tenant probe failed: %v", err)
		return "", known
	}

	for _, value := range resp.Header.Values(HeaderResourceTenant) {
		for _, candidate := range strings.Split(value, ",") {
			id, err := uuid.Parse(strings.TrimSpace(candidate))
			if err != nil {
				continue
			}
			if id == uuid.Nil {
				log.Debug("microsoft account organization")
				return "", true
			}
			log.WithField("tenant", id.String()).Debug("azure directory organization")
			return id.String(), true
		}
	}
	return "", known
}
