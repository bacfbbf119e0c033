package editor

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"

	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/editor/rows"
	"github.com/operator-framework/csv-editor/pkg/editor/status"
	"github.com/operator-framework/csv-editor/pkg/editor/templates"
	"github.com/operator-framework/csv-editor/pkg/validation"
)

const completeMetadata = `metadata:
  name: etcdoperator.v0.9.4
  annotations:
    capabilities: Full Lifecycle
    description: Create and maintain highly-available etcd clusters
spec:
  displayName: etcd
  description: etcd is a distributed key value store
  version: 0.9.4
  maturity: alpha
  icon:
  - base64data: aGk=
    mediatype: image/png
  installModes:
  - type: OwnNamespace
    supported: true
  maintainers:
  - name: core
    email: etcd-dev@googlegroups.com
  links:
  - name: Blog
    url: https://coreos.com/etcd
`

var _ = Describe("Metadata page", func() {
	var s *State

	BeforeEach(func() {
		s = newTestState()
	})

	It("returns to empty when left without changes", func() {
		p := s.EnterMetadata()
		Expect(p.Status()).To(Equal(status.Empty))
		Expect(p.VisibleErrors().Any(MetadataFields...)).To(BeFalse())
		Expect(s.FormErrors().Get(csv.SpecDisplayName.String())).NotTo(BeNil())

		By("editing the working copy only")
		Expect(p.Update(csv.SpecDisplayName.String(), "etcd")).To(Succeed())
		Expect(s.Operator().Empty()).To(BeTrue())

		Expect(p.Exit()).To(BeTrue())
		Expect(s.SectionStatus(status.Metadata)).To(Equal(status.Empty))
		Expect(p.Exit()).To(BeFalse())
	})

	It("keeps the committed status on exit", func() {
		p := s.EnterMetadata()
		Expect(p.Update(csv.SpecDisplayName.String(), "etcd")).To(Succeed())
		Expect(p.Commit(csv.SpecDisplayName.String())).To(Equal(status.Errors))
		Expect(s.Operator().GetString(csv.SpecDisplayName.String())).To(Equal("etcd"))
		Expect(s.FormErrors().Get(csv.SpecDisplayName.String())).To(BeNil())

		Expect(p.Exit()).To(BeFalse())
		Expect(s.SectionStatus(status.Metadata)).To(Equal(status.Errors))
	})

	It("shows errors only for fields that hold a value when entered empty", func() {
		p := s.EnterMetadata()
		Expect(p.Update(csv.SpecVersion.String(), "latest")).To(Succeed())
		p.Commit(csv.SpecVersion.String())

		visible := p.VisibleErrors()
		Expect(visible.Get(csv.SpecVersion.String())).NotTo(BeNil())
		Expect(visible.Get(csv.SpecVersion.String()).Message).To(Equal(validation.SemverErrorMessage))
		Expect(visible.Get(csv.SpecDescription.String())).To(BeNil())
	})

	It("stores label, link and maintainer rows", func() {
		p := s.EnterMetadata()
		_, err := p.UpdateLabels([]*rows.LabelRow{{Key: "app", Value: "etcd"}, rows.NewQualifiedLabelRow()})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Operator().Get(csv.SpecLabels.String())).To(Equal(map[string]interface{}{"app": "etcd"}))

		_, err = p.UpdateMaintainers([]*rows.LabelRow{{Key: "core", Value: "not-an-email"}})
		Expect(err).NotTo(HaveOccurred())
		fe := s.FormErrors().Get(csv.SpecMaintainers.String())
		Expect(fe).NotTo(BeNil())
		Expect(fe.Items).To(HaveLen(1))

		_, err = p.UpdateLinks([]*rows.LabelRow{{Key: "Blog", Value: "https://coreos.com/etcd"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.FormErrors().Get(csv.SpecLinks.String())).To(BeNil())

		links := p.LabelRows(csv.SpecLinks)
		Expect(links).To(HaveLen(1))
		Expect(links[0].Value).To(Equal("https://coreos.com/etcd"))

		_, err = p.UpdateCategories([]string{"Database", "Big Data"})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Operator().GetString(csv.AnnotationCategories.String())).To(Equal("Database, Big Data"))
	})

	It("completes when every field is valid", func() {
		doc, err := csv.FromYAML([]byte(completeMetadata))
		Expect(err).NotTo(HaveOccurred())
		s.SetOperator(doc)

		p := s.EnterMetadata()
		Expect(p.Apply()).To(Equal(status.Complete))
		Expect(p.Exit()).To(BeFalse())
		Expect(s.SectionStatus(status.Metadata)).To(Equal(status.Complete))
	})
})

var _ = Describe("CRD page", func() {
	var s *State

	BeforeEach(func() {
		s = newTestState()
	})

	It("creates a missing CRD and focuses the placeholder name", func() {
		p, err := s.EnterCRD(status.OwnedCRDs, PlaceholderName(status.OwnedCRDs))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.FocusName()).To(BeTrue())
		Expect(s.CRDNames(status.OwnedCRDs)).To(Equal([]string{"Add Owned CRD"}))

		By("renaming it")
		_, err = p.Update(CRDName, "etcdclusters.etcd.database.coreos.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name()).To(Equal("etcdclusters.etcd.database.coreos.com"))
		Expect(s.CRDNames(status.OwnedCRDs)).To(Equal([]string{"etcdclusters.etcd.database.coreos.com"}))

		again, err := s.EnterCRD(status.OwnedCRDs, "etcdclusters.etcd.database.coreos.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.FocusName()).To(BeFalse())
		Expect(s.CRDNames(status.OwnedCRDs)).To(HaveLen(1))
	})

	It("rejects sections without CRDs", func() {
		_, err := s.EnterCRD(status.Deployments, "x")
		Expect(err).To(MatchError(ErrNotCRDSection))
	})

	It("updates descriptors and resources", func() {
		p, err := s.EnterCRD(status.RequiredCRDs, "etcdbackups.etcd.database.coreos.com")
		Expect(err).NotTo(HaveOccurred())

		_, err = p.UpdateSpecDescriptors([]interface{}{map[string]interface{}{"path": "size", "displayName": "Size"}})
		Expect(err).NotTo(HaveOccurred())
		_, err = p.UpdateResources([]interface{}{map[string]interface{}{"kind": "Pod", "version": "v1"}})
		Expect(err).NotTo(HaveOccurred())

		path, err := p.FieldPath(CRDSpecDescriptors)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("spec.customresourcedefinitions.required[0].specDescriptors"))
		Expect(s.Operator().Get(path + "[0].path")).To(Equal("size"))
		Expect(p.Field("resources[0].kind")).To(Equal("Pod"))
		Expect(s.SectionStatus(status.RequiredCRDs)).To(Equal(status.Pending))
	})

	It("keeps template text that does not parse", func() {
		p, err := s.EnterCRD(status.OwnedCRDs, "etcdclusters.etcd.database.coreos.com")
		Expect(err).NotTo(HaveOccurred())
		_, err = p.Update(CRDKind, "EtcdCluster")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Template().Kind()).To(Equal("EtcdCluster"))

		Expect(p.ChangeTemplate("spec:\n  size: 3\n")).To(BeTrue())
		example, ok := templates.Example(s.Operator(), "EtcdCluster")
		Expect(ok).To(BeTrue())
		Expect(example["kind"]).To(Equal("EtcdCluster"))

		before := s.Operator()
		Expect(p.ChangeTemplate("spec: [")).To(BeFalse())
		Expect(p.Template().Text()).To(Equal("spec: ["))
		Expect(p.Template().Error()).NotTo(BeEmpty())
		Expect(s.Operator()).To(BeIdenticalTo(before))
	})

	It("removes a CRD by name", func() {
		_, err := s.EnterCRD(status.OwnedCRDs, "a")
		Expect(err).NotTo(HaveOccurred())
		_, err = s.EnterCRD(status.OwnedCRDs, "b")
		Expect(err).NotTo(HaveOccurred())

		Expect(s.RemoveCRD(status.OwnedCRDs, "a")).To(Succeed())
		Expect(s.CRDNames(status.OwnedCRDs)).To(Equal([]string{"b"}))
		Expect(s.RemoveCRD(status.OwnedCRDs, "a")).To(MatchError(ErrCRDNotFound))
	})
})

var _ = Describe("Deployments page", func() {
	It("adds and removes deployments", func() {
		s := newTestState()
		p := s.EnterDeployments()

		_, err := p.Add("etcd-operator", "quay.io/coreos/etcd-operator:v0.9.4")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Names()).To(Equal([]string{"etcd-operator"}))
		Expect(s.Operator().GetString(csv.InstallStrategy.String())).To(Equal("deployment"))
		Expect(s.Operator().Get("spec.install.spec.deployments[0].spec.template.spec.containers[0].image")).
			To(Equal("quay.io/coreos/etcd-operator:v0.9.4"))
		Expect(s.Operator().Get("spec.install.spec.deployments[0].spec.template.spec.containers[0].imagePullPolicy")).
			To(Equal("Always"))

		_, err = p.Add("etcd-operator", "other")
		Expect(err).To(HaveOccurred())

		_, err = p.Remove("etcd-operator")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Names()).To(BeEmpty())
		Expect(p.Exit()).To(BeFalse())
		Expect(s.SectionStatus(status.Deployments)).To(Equal(status.Pending))
	})
})

var _ = Describe("Permissions page", func() {
	It("writes complete rule rows back to the service account", func() {
		s := newTestState()
		p, err := s.EnterPermissions(status.ClusterPermissions)
		Expect(err).NotTo(HaveOccurred())

		_, err = p.AddServiceAccount("etcd-operator")
		Expect(err).NotTo(HaveOccurred())

		list, err := p.Rules("etcd-operator")
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Empty()).To(BeTrue())

		row, err := list.At(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(list.UpdateRow(row, rows.FieldAPIGroups, rows.CoreGroup)).To(Succeed())
		row.SelectResource("pods")
		Expect(list.Blur(row)).To(BeFalse())
		Expect(s.Operator().Get("spec.install.spec.clusterPermissions[0].rules")).To(BeEmpty())

		row.SelectVerb("get")
		Expect(list.Blur(row)).To(BeTrue())
		Expect(s.Operator().Get("spec.install.spec.clusterPermissions[0].rules[0].resources")).
			To(Equal([]interface{}{"pods"}))
		Expect(s.Operator().Get("spec.install.spec.clusterPermissions[0].rules[0].apiGroups")).
			To(Equal([]interface{}{""}))

		_, err = p.RemoveServiceAccount("etcd-operator")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.ServiceAccounts()).To(BeEmpty())
	})

	It("rejects unknown service accounts", func() {
		s := newTestState()
		p, err := s.EnterPermissions(status.Permissions)
		Expect(err).NotTo(HaveOccurred())
		_, err = p.Rules("missing")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Install modes page", func() {
	It("stores every mode and requires one to be supported", func() {
		s := newTestState()
		p := s.EnterInstallModes()

		modes, err := p.Modes()
		Expect(err).NotTo(HaveOccurred())
		Expect(modes).To(HaveLen(4))
		Expect(p.Apply()).To(Equal(status.Errors))

		_, err = p.SetSupported(operatorsv1alpha1.InstallModeTypeAllNamespaces, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Global()).To(BeTrue())
		Expect(s.Operator().Get("spec.installModes")).To(HaveLen(4))
		Expect(p.Apply()).To(Equal(status.Complete))

		_, err = p.SetSupported("Everywhere", true)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Metadata page sync", func() {
	It("keeps uncommitted edits until the stored document is replaced", func() {
		s := newTestState()
		p := s.EnterMetadata()
		Expect(p.Update(csv.SpecDisplayName.String(), "draft")).To(Succeed())

		p.Sync()
		Expect(p.Working().Get(csv.SpecDisplayName.String())).To(Equal("draft"))

		p.Commit(csv.SpecDisplayName.String())
		p.Sync()
		Expect(p.Working().Get(csv.SpecDisplayName.String())).To(Equal("draft"))

		replaced := csv.New()
		Expect(replaced.Set(csv.SpecDisplayName.String(), "etcd")).To(Succeed())
		s.SetOperator(replaced)
		p.Sync()
		Expect(p.Working().Get(csv.SpecDisplayName.String())).To(Equal("etcd"))
	})
})
