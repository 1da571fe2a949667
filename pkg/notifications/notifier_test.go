package notifications_test

import (
	"errors"
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/lookout/pkg/image"
	"github.com/nicholas-fedor/lookout/pkg/notifications"
	"github.com/nicholas-fedor/lookout/pkg/notifications/templates"
	"github.com/nicholas-fedor/lookout/pkg/session"
)

// fakeRouter records sent messages.
type fakeRouter struct {
	messages []string
	titles   []string
	errs     []error
}

func (r *fakeRouter) Send(message string, params *shoutrrrTypes.Params) []error {
	r.messages = append(r.messages, message)

	if params != nil {
		if title, found := params.Title(); found {
			r.titles = append(r.titles, title)
		}
	}

	return r.errs
}

var (
	oldDigest = "sha256:" + strings.Repeat("a", 64)
	newDigest = "sha256:" + strings.Repeat("b", 64)
)

func reportWith(images ...image.Image) *session.Report {
	return session.NewReport(images, nil, time.Now(), time.Second)
}

var _ = ginkgo.Describe("notifications", func() {
	var (
		router  *fakeRouter
		urls    []string
		updated image.Image
		current image.Image
	)

	ginkgo.BeforeEach(func() {
		router = &fakeRouter{}
		urls = []string{"logger://"}
		updated = image.MustNew("nginx:latest").WithCurrentDigest(oldDigest).Resolved(newDigest)
		current = image.MustNew("redis:7").WithCurrentDigest(oldDigest).Resolved(oldDigest)
	})

	ginkgo.Describe("the title", func() {
		ginkgo.It("should include the tag and hostname", func() {
			gomega.Expect(notifications.GetTitle("test.host", "PREFIX")).
				To(gomega.Equal("[PREFIX] Lookout updates on test.host"))
		})

		ginkgo.It("should use the default simple title without a hostname", func() {
			gomega.Expect(notifications.GetTitle("", "")).To(gomega.Equal("Lookout updates"))
		})

		ginkgo.It("should use the given hostname in the template data", func() {
			gomega.Expect(notifications.GetTemplateData("test.host", "").Title).
				To(gomega.Equal("Lookout updates on test.host"))
		})
	})

	ginkgo.Describe("the notifier", func() {
		ginkgo.It("should be nil without URLs", func() {
			notifier, err := notifications.NewNotifier(nil, notifications.StaticData{}, "")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(notifier).To(gomega.BeNil())
			gomega.Expect(notifier.Notify(reportWith(updated))).To(gomega.BeFalse())
			gomega.Expect(notifier.GetNames()).To(gomega.BeEmpty())
		})

		ginkgo.It("should reject an invalid URL", func() {
			_, err := notifications.NewNotifier([]string{"not a url"}, notifications.StaticData{}, "")
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("should report service names from the URL schemes", func() {
			notifier, err := notifications.NewNotifierWithRouter(
				router, []string{"slack://token@channel", "gotify://host/token"}, notifications.StaticData{}, "")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(notifier.GetNames()).To(gomega.Equal([]string{"slack", "gotify"}))
		})

		ginkgo.It("should stay silent when nothing has updates", func() {
			notifier, err := notifications.NewNotifierWithRouter(router, urls, notifications.StaticData{}, "")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(notifier.Notify(reportWith(current))).To(gomega.BeFalse())
			gomega.Expect(router.messages).To(gomega.BeEmpty())
		})

		ginkgo.It("should list images with updates in the default template", func() {
			data := notifications.StaticData{Title: "Lookout updates on host"}
			notifier, err := notifications.NewNotifierWithRouter(router, urls, data, "")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(notifier.Notify(reportWith(updated, current))).To(gomega.BeTrue())
			gomega.Expect(router.messages).To(gomega.HaveLen(1))
			gomega.Expect(router.messages[0]).To(gomega.Equal(
				"1 of 2 images have updates available\n- nginx:latest: aaaaaaaaaaaa -> bbbbbbbbbbbb"))
			gomega.Expect(router.titles).To(gomega.Equal([]string{"Lookout updates on host"}))
		})

		ginkgo.It("should render the porcelain template", func() {
			notifier, err := notifications.NewNotifierWithRouter(router, urls, notifications.StaticData{}, "porcelain.v1.summary")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			notifier.Notify(reportWith(updated))
			gomega.Expect(router.messages).To(gomega.Equal([]string{"nginx:latest " + newDigest + "\n"}))
		})

		ginkgo.It("should render the JSON template", func() {
			notifier, err := notifications.NewNotifierWithRouter(router, urls, notifications.StaticData{}, "json.v1")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			notifier.Notify(reportWith(updated))
			gomega.Expect(router.messages).To(gomega.HaveLen(1))
			gomega.Expect(router.messages[0]).To(gomega.ContainSubstring(`"status": "update_available"`))
		})

		ginkgo.It("should reject a template that does not parse", func() {
			_, err := notifications.NewNotifierWithRouter(router, urls, notifications.StaticData{}, "{{ .Broken")
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("should report send failures without panicking", func() {
			router.errs = []error{errors.New("service down")}
			notifier, err := notifications.NewNotifierWithRouter(router, urls, notifications.StaticData{}, "")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(notifier.Notify(reportWith(updated))).To(gomega.BeFalse())
			gomega.Expect(router.messages).To(gomega.HaveLen(1))
		})
	})

	ginkgo.Describe("template functions", func() {
		ginkgo.It("should shorten digests", func() {
			gomega.Expect(templates.ShortDigest(newDigest)).To(gomega.Equal("bbbbbbbbbbbb"))
			gomega.Expect(templates.ShortDigest("")).To(gomega.Equal("none"))
		})
	})
})
