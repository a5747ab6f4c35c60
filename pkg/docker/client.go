// Package docker wraps the container runtime CLI as a best-effort log and
// metadata source. Log text is the product here, so every operation returns
// whatever output it managed to capture: a failed or non-zero invocation
// degrades to partial (possibly empty) text rather than an error. Callers
// must treat empty text as "no new data"; distinguishing that from a failed
// fetch is an accepted limitation of the CLI boundary.
package docker

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/supporttools/blockwatch/pkg/logger"
	"github.com/supporttools/blockwatch/pkg/metrics"
)

// ErrContainerNotFound reports that the requested container does not exist.
// It is the only adapter condition surfaced as a request-level failure.
var ErrContainerNotFound = errors.New("container not found")

// inspectProbeTimeout bounds metadata probes (existence, start time). The
// main log tail deliberately carries no adapter-side timeout: it blocks as
// long as the runtime takes.
const inspectProbeTimeout = 2 * time.Second

var startedAtRegex = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)

// Client invokes the docker CLI through an injectable CommandRunner.
type Client struct {
	runner  CommandRunner
	binary  string
	metrics *metrics.Metrics
	log     *logrus.Entry
}

// NewClient creates a docker client. binary defaults to "docker" when empty;
// m may be nil to disable instrumentation.
func NewClient(runner CommandRunner, binary string, m *metrics.Metrics) *Client {
	if binary == "" {
		binary = "docker"
	}
	return &Client{
		runner:  runner,
		binary:  binary,
		metrics: m,
		log:     logger.WithField("component", "docker"),
	}
}

// ContainerExists reports whether a container with the given name exists,
// running or not. Invocation failure counts as not found.
func (c *Client) ContainerExists(ctx context.Context, name string) bool {
	ctx, cancel := context.WithTimeout(ctx, inspectProbeTimeout)
	defer cancel()

	out, exitCode, err := c.run(ctx, "ps", "ps", "-a", "--format", "{{.Names}}")
	if err != nil || exitCode != 0 {
		c.log.WithError(err).WithField("exit_code", exitCode).Warn("Container listing failed")
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == name {
			return true
		}
	}
	return false
}

// Logs fetches up to tail timestamped log lines for container, bounded below
// by since when non-empty (a timestamp or a relative duration like "1h").
// It returns best-effort text and never fails: a non-zero exit yields the
// partial output, an invocation error yields "".
func (c *Client) Logs(ctx context.Context, container, since string, tail int) string {
	args := []string{"logs", "--timestamps"}
	if since != "" {
		args = append(args, "--since", since)
	}
	args = append(args, "--tail", strconv.Itoa(tail), container)

	out, exitCode, err := c.run(ctx, "logs", args...)
	if err != nil {
		c.log.WithError(err).WithField("container", container).Warn("Log fetch failed")
		return ""
	}
	if exitCode != 0 {
		c.log.WithFields(logrus.Fields{
			"container": container,
			"exit_code": exitCode,
		}).Debug("Log fetch exited non-zero, using partial output")
	}
	return out
}

// StartedAt returns the container's start time as a second-granularity
// timestamp string, or "" when the probe fails. Used as a fallback when a
// log window carries no timestamps.
func (c *Client) StartedAt(ctx context.Context, name string) string {
	ctx, cancel := context.WithTimeout(ctx, inspectProbeTimeout)
	defer cancel()

	out, exitCode, err := c.run(ctx, "inspect", "inspect", "-f", "{{.State.StartedAt}}", name)
	if err != nil || exitCode != 0 {
		return ""
	}
	out = strings.TrimSpace(out)
	if m := startedAtRegex.FindString(out); m != "" {
		return m
	}
	return out
}

func (c *Client) run(ctx context.Context, command string, args ...string) (string, int, error) {
	start := time.Now()
	out, exitCode, err := c.runner.Run(ctx, c.binary, args...)
	if c.metrics != nil {
		c.metrics.DockerCommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	}
	return out, exitCode, err
}
