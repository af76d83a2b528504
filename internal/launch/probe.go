package launch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/vk/camlaunchgo/internal/ctxlog"
	"github.com/vk/camlaunchgo/internal/pipeline"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// CameraProbe checks that the camera's HTTP endpoint is reachable before the
// driver stage starts. Any HTTP response counts as reachable; the probe
// verifies plumbing, it does not speak the camera protocol.
type CameraProbe struct {
	Client *retryablehttp.Client
}

// NewCameraProbe returns a probe with short timeouts and a few retries,
// suitable for a camera that may still be booting when the pipeline comes up.
func NewCameraProbe() *CameraProbe {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil
	// Retry only on transport errors; any HTTP status means something is
	// listening at the camera address.
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return err != nil, nil
	}
	return &CameraProbe{Client: client}
}

// Check probes the camera address carried in the stage's resolved params.
func (p *CameraProbe) Check(ctx context.Context, spec pipeline.StageSpec) error {
	ip, err := paramString(spec, "ip")
	if err != nil {
		return err
	}
	port, err := paramString(spec, "port")
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s:%s/", ip, port)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Probing camera endpoint.", "url", url)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building camera probe request: %w", err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("camera unreachable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	logger.Debug("Camera endpoint reachable.", "url", url, "status", resp.StatusCode)
	return nil
}

// paramString pulls a required stage parameter as a string.
func paramString(spec pipeline.StageSpec, key string) (string, error) {
	v, ok := spec.Params[key]
	if !ok {
		return "", fmt.Errorf("stage %q has no %q parameter", spec.Name, key)
	}
	converted, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("stage %q: parameter %q: %w", spec.Name, key, err)
	}
	return converted.AsString(), nil
}
