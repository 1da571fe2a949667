package container

import (
	"context"
	"errors"
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
	dockerImageType "github.com/docker/docker/api/types/image"
	dockerClient "github.com/docker/docker/client"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/pkg/image"
)

// errFailedCreateClient indicates the Docker client could not be configured.
var errFailedCreateClient = errors.New("failed to create Docker client")

// ImageAPI is the subset of the Docker API the lister needs.
type ImageAPI interface {
	ImageList(ctx context.Context, options dockerImageType.ListOptions) ([]dockerImageType.Summary, error)
	ImageInspect(
		ctx context.Context,
		imageID string,
		inspectOpts ...dockerClient.ImageInspectOption,
	) (dockerImageType.InspectResponse, error)
}

// Client lists local images through the Docker API.
type Client struct {
	api    ImageAPI
	closer func() error
}

// NewClient creates a Client for the daemon at host.
//
// Parameters:
//   - host: Daemon address such as "unix:///var/run/docker.sock"; empty uses DOCKER_HOST.
//
// Returns:
//   - *Client: Lister with API version negotiation enabled.
//   - error: Non-nil if the client options are invalid.
func NewClient(host string) (*Client, error) {
	opts := []dockerClient.Opt{
		dockerClient.FromEnv,
		dockerClient.WithAPIVersionNegotiation(),
	}

	if host != "" {
		opts = append(opts, dockerClient.WithHost(host))
	}

	cli, err := dockerClient.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedCreateClient, err)
	}

	logrus.WithField("host", cli.DaemonHost()).Debug("Initialized Docker client")

	return &Client{api: cli, closer: cli.Close}, nil
}

// NewClientWithAPI wraps an existing API implementation.
func NewClientWithAPI(api ImageAPI) *Client {
	return &Client{api: api}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}

	return c.closer()
}

// ListImages returns local images as tracked images.
//
// Without references every tagged local image is returned, one per repo tag.
// With references only those present locally are returned, in request order;
// missing ones are left for the caller to check remotely.
//
// Parameters:
//   - ctx: Context for the API calls.
//   - references: Optional image references to restrict the listing to.
//
// Returns:
//   - []image.Image: Images with their current digest where the daemon knows it.
func (c *Client) ListImages(ctx context.Context, references []string) []image.Image {
	if len(references) > 0 {
		return c.inspectImages(ctx, references)
	}

	summaries, err := c.api.ImageList(ctx, dockerImageType.ListOptions{})
	if err != nil {
		logrus.WithError(err).Warn("Failed to list images from Docker, continuing without local images")

		return nil
	}

	var images []image.Image

	for _, summary := range summaries {
		images = append(images, fromRepoTags(summary.RepoTags, summary.RepoDigests)...)
	}

	logrus.WithField("count", len(images)).Debug("Listed local images")

	return images
}

func (c *Client) inspectImages(ctx context.Context, references []string) []image.Image {
	var images []image.Image

	for _, ref := range references {
		fields := logrus.Fields{"reference": ref}

		img, err := image.New(ref)
		if err != nil {
			continue
		}

		inspect, err := c.api.ImageInspect(ctx, ref)
		if err != nil {
			if cerrdefs.IsNotFound(err) {
				logrus.WithFields(fields).Debug("Image not present locally")
			} else {
				logrus.WithError(err).WithFields(fields).Warn("Failed to inspect image")
			}

			continue
		}

		if img.CurrentDigest == "" {
			img = img.WithCurrentDigest(matchRepoDigest(img, inspect.RepoDigests))
		}

		images = append(images, img)
	}

	return images
}
