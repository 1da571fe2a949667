package actions

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nicholas-fedor/lookout/pkg/image"
	"github.com/nicholas-fedor/lookout/pkg/registry"
	"github.com/nicholas-fedor/lookout/pkg/registry/client"
	"github.com/nicholas-fedor/lookout/pkg/registry/digest"
	"github.com/nicholas-fedor/lookout/pkg/session"
	"github.com/nicholas-fedor/lookout/pkg/types"
)

// errCheckInterrupted flags a run whose context ended before it finished.
var errCheckInterrupted = errors.New("update check interrupted")

// ImageLister enumerates images known to the container runtime.
//
// Implementations fail open: an unreachable runtime yields an empty list.
type ImageLister interface {
	ListImages(ctx context.Context, references []string) []image.Image
}

// CheckParams configures one update check.
type CheckParams struct {
	// References are extra images to check in addition to the runtime's.
	References []string
	// Config supplies credentials, insecure registries and concurrency.
	Config *types.Config
	// Client is shared by every registry request of the run.
	Client client.Doer
}

// registryGroup indexes the images of one registry by position.
type registryGroup struct {
	registry     string
	repositories []string
	members      []int
}

// authorization is the outcome of authenticating against one registry.
type authorization struct {
	header string
	err    error
}

// CheckForUpdates runs one update check.
//
// Images from the lister come first, followed by extra references not already
// present, in request order. Registry failures are recorded on the affected
// images and never abort the run; only an ended context does, in which case
// no report is returned.
//
// Parameters:
//   - ctx: Context bounding the whole run.
//   - lister: Runtime image source, may be nil.
//   - params: Extra references, configuration and client.
//
// Returns:
//   - *session.Report: Every image annotated with a digest or failure.
//   - error: Non-nil only if ctx ended before the run completed.
func CheckForUpdates(ctx context.Context, lister ImageLister, params CheckParams) (*session.Report, error) {
	startedAt := time.Now()

	cfg := params.Config
	if cfg == nil {
		cfg = types.DefaultConfig()
	}

	doer := params.Client
	if doer == nil {
		doer = client.New(client.OptionsFromConfig(cfg.Retry))
	}

	var images []image.Image
	if lister != nil {
		images = slices.Clone(lister.ListImages(ctx, params.References))
	}

	extras, rejected := resolveReferences(images, params.References)
	images = append(images, extras...)

	logrus.WithFields(logrus.Fields{
		"runtime":  len(images) - len(extras),
		"extra":    len(extras),
		"rejected": len(rejected),
	}).Debug("Collected images")

	groups := groupByRegistry(images)
	auths := authenticate(ctx, groups, cfg, doer)
	results := checkDigests(ctx, images, auths, cfg, doer)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errCheckInterrupted, err)
	}

	report := session.NewReport(results, rejected, startedAt, time.Since(startedAt))
	summary := report.Summary()

	logrus.WithFields(logrus.Fields{
		"checked":  summary.Checked,
		"updates":  summary.UpdateAvailable,
		"current":  summary.UpToDate,
		"unknown":  summary.Unknown,
		"failed":   summary.Failed,
		"rejected": summary.Rejected,
		"duration": report.Duration(),
	}).Info("Update check finished")

	return report, nil
}

// resolveReferences parses extra references concurrently and drops those
// already covered by known images or by an earlier reference.
func resolveReferences(known []image.Image, references []string) ([]image.Image, []*image.ReferenceError) {
	parsed := make([]image.Image, len(references))
	errs := make([]error, len(references))

	var group errgroup.Group

	for i, ref := range references {
		group.Go(func() error {
			parsed[i], errs[i] = image.New(ref)

			return nil
		})
	}

	_ = group.Wait()

	seen := make(map[string]struct{}, len(known)+len(references))
	for _, img := range known {
		seen[img.Canonical()] = struct{}{}
	}

	var (
		extras   []image.Image
		rejected []*image.ReferenceError
	)

	for i, ref := range references {
		if errs[i] != nil {
			var refErr *image.ReferenceError
			if !errors.As(errs[i], &refErr) {
				refErr = &image.ReferenceError{Reference: ref, Err: errs[i]}
			}

			logrus.WithError(refErr.Err).WithField("reference", ref).Warn("Skipping invalid image reference")

			rejected = append(rejected, refErr)

			continue
		}

		if _, dup := seen[parsed[i].Canonical()]; dup {
			continue
		}

		seen[parsed[i].Canonical()] = struct{}{}
		extras = append(extras, parsed[i])
	}

	return extras, rejected
}

// groupByRegistry indexes images by registry, sorted by host.
func groupByRegistry(images []image.Image) []registryGroup {
	byRegistry := make(map[string]*registryGroup)

	for i, img := range images {
		group, ok := byRegistry[img.Registry]
		if !ok {
			group = &registryGroup{registry: img.Registry}
			byRegistry[img.Registry] = group
		}

		group.members = append(group.members, i)

		if !slices.Contains(group.repositories, img.Repository) {
			group.repositories = append(group.repositories, img.Repository)
		}
	}

	groups := make([]registryGroup, 0, len(byRegistry))
	for _, group := range byRegistry {
		groups = append(groups, *group)
	}

	slices.SortFunc(groups, func(a, b registryGroup) int {
		return strings.Compare(a.registry, b.registry)
	})

	return groups
}

// authenticate resolves every registry one after another. The returned table
// is complete before any digest check starts and is only read afterwards.
func authenticate(
	ctx context.Context,
	groups []registryGroup,
	cfg *types.Config,
	doer client.Doer,
) map[string]authorization {
	table := make(map[string]authorization, len(groups))

	for _, group := range groups {
		header, err := registry.Authenticate(ctx, group.registry, group.repositories, cfg, doer)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"registry": group.registry,
				"images":   len(group.members),
			}).Warn("Registry authentication failed, marking its images as failed")
		}

		table[group.registry] = authorization{header: header, err: err}
	}

	return table
}

// checkDigests fans out one digest check per image and writes each result at
// the image's own index. A Concurrency above zero caps in-flight checks.
func checkDigests(
	ctx context.Context,
	images []image.Image,
	auths map[string]authorization,
	cfg *types.Config,
	doer client.Doer,
) []image.Image {
	results := make([]image.Image, len(images))

	var group errgroup.Group
	if cfg.Concurrency > 0 {
		group.SetLimit(cfg.Concurrency)
	}

	for i, img := range images {
		auth := auths[img.Registry]
		if auth.err != nil {
			results[i] = img.Failed(fmt.Errorf("%w: %w", digest.ErrDigestFetch, auth.err))

			continue
		}

		group.Go(func() error {
			results[i] = digest.Check(ctx, img, auth.header, cfg, doer)

			return nil
		})
	}

	_ = group.Wait()

	return results
}
