// Cloud provider auto-detection, used once at init to tag the instance.
// AWS is recognized from the hypervisor UUID; GCP and Azure from their
// link-local metadata services. Probes are short and failure simply means
// "Unknown" — detection never blocks initialization.
package config

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	hypervisorUUIDPath = "/sys/hypervisor/uuid"
	gcpMetadataURL     = "http://metadata.google.internal/computeMetadata/v1/?recursive=false&alt=text"
	azureMetadataURL   = "http://169.254.169.254/metadata/instance?api-version=2021-02-01"

	probeTimeout = 2 * time.Second
)

// DetectCloudProvider probes the local environment for a known cloud
// provider. Returns CloudUnknown when nothing matches or the metadata
// services are unreachable.
func DetectCloudProvider(ctx context.Context, logger *zap.Logger) CloudProvider {
	// AWS EC2 exposes a hypervisor UUID prefixed "ec2".
	if data, err := os.ReadFile(hypervisorUUIDPath); err == nil {
		if strings.HasPrefix(string(data), "ec2") {
			logger.Info("AWS detected via hypervisor UUID")
			return CloudAWS
		}
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.HTTPClient.Timeout = probeTimeout

	if probeMetadata(ctx, client, gcpMetadataURL, "Metadata-Flavor", "Google") {
		logger.Info("GCP detected via metadata server")
		return CloudGCP
	}
	if probeMetadata(ctx, client, azureMetadataURL, "Metadata", "true") {
		logger.Info("Azure detected via metadata server")
		return CloudAzure
	}

	logger.Info("No cloud provider detected")
	return CloudUnknown
}

// probeMetadata issues a GET with the provider-specific header and reports
// whether the service answered successfully.
func probeMetadata(ctx context.Context, client *retryablehttp.Client, url, header, value string) bool {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set(header, value)

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
