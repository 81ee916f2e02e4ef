package stage

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const yamlCatalogue = `
stages:
  - name: CON
    module: marble
    label: Consent
  - name: ANTHRO
    module: jade
    label: Anthropometry
    dependsOn: completed("CON")
  - name: BP
    module: jade
    dependsOn: completed("CON") && !skipped("ANTHRO")
`

const tomlCatalogue = `
[[stages]]
name = "CON"
module = "marble"

[[stages]]
name = "ECG"
module = "jade"
dependsOn = 'final("CON")'
`

var _ = Describe("stage catalogue", func() {
	modules := []string{"jade", "marble"}

	Describe("parsing", func() {
		It("should read YAML", func() {
			c, err := ParseYAML([]byte(yamlCatalogue))
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Names()).To(Equal([]string{"CON", "ANTHRO", "BP"}))
			Expect(c.Validate(modules)).To(Succeed())
		})
		It("should read TOML", func() {
			c, err := ParseTOML([]byte(tomlCatalogue))
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Names()).To(Equal([]string{"CON", "ECG"}))
			Expect(c.Validate(modules)).To(Succeed())
		})
		It("should apply the defaults block to every stage", func() {
			c, err := ParseYAML([]byte(`
defaults:
  module: jade
  description: Measured at the assessment centre
stages:
  - name: CON
    module: marble
    description: Signed on paper
  - name: ANTHRO
  - name: BP
    dependsOn: final("ANTHRO")
`))
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Stages[0].Module).To(Equal("marble"))
			Expect(c.Stages[0].Description).To(Equal("Signed on paper"))
			Expect(c.Stages[1].Module).To(Equal("jade"))
			Expect(c.Stages[1].Description).To(Equal("Measured at the assessment centre"))
			Expect(c.Stages[2].DependsOn).To(Equal(`final("ANTHRO")`))
			Expect(c.Validate(modules)).To(Succeed())
		})
		It("should reject documents that do not fit the schema", func() {
			_, err := ParseYAML([]byte(`
stages:
  - module: jade
  - name: "has space"
    module: jade
    colour: blue
`))
			Expect(err).To(MatchError(ErrBadCatalogue))
			Expect(err.Error()).To(ContainSubstring("name is required"))
			Expect(err.Error()).To(ContainSubstring("colour"))

			_, err = ParseYAML([]byte("label: nothing"))
			Expect(err).To(MatchError(ErrBadCatalogue))

			_, err = ParseTOML([]byte(`
[[stages]]
name = 7
`))
			Expect(err).To(MatchError(ErrBadCatalogue))
		})
		It("should pick the format from the file extension", func() {
			dir := GinkgoT().TempDir()
			path := filepath.Join(dir, "stages.yml")
			Expect(os.WriteFile(path, []byte(yamlCatalogue), 0o644)).To(Succeed())
			c, err := LoadCatalogue(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Stages).To(HaveLen(3))

			_, err = LoadCatalogue(filepath.Join(dir, "stages.ini"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("validation", func() {
		It("should report every problem at once", func() {
			c := &Catalogue{Stages: []*Stage{
				{Name: "CON", Module: "marble"},
				{Name: "CON", Module: "jade"},
				{Name: "X", Module: "quartz"},
				{Name: "Y", Module: "jade", DependsOn: `completed("Y")`},
				{Name: "Z", Module: "jade", DependsOn: `completed("NOWHERE")`},
				{Name: "W", Module: "jade", DependsOn: `completed(`},
			}}
			err := c.Validate(modules)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("CON defined more than once"))
			Expect(err.Error()).To(ContainSubstring(`unknown module "quartz"`))
			Expect(err.Error()).To(ContainSubstring("Y depends on itself"))
			Expect(err.Error()).To(ContainSubstring("Z depends on unknown stage NOWHERE"))
			Expect(err.Error()).To(ContainSubstring("W: bad dependency condition"))
		})
	})

	Describe("dependency cycles", func() {
		It("should reject stages that depend on each other", func() {
			c := &Catalogue{Stages: []*Stage{
				{Name: "A", Module: "jade", DependsOn: `state("B") != "ready"`},
				{Name: "B", Module: "jade", DependsOn: `state("A") == "ready"`},
			}}
			err := c.Validate(modules)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("stages A -> B -> A form a dependency cycle"))
		})
		It("should report longer loops once", func() {
			c := &Catalogue{Stages: []*Stage{
				{Name: "CON", Module: "marble"},
				{Name: "X", Module: "jade", DependsOn: `completed("CON") && completed("Z")`},
				{Name: "Y", Module: "jade", DependsOn: `final("X")`},
				{Name: "Z", Module: "jade", DependsOn: `skipped("Y")`},
			}}
			err := c.Validate(modules)
			Expect(err).To(HaveOccurred())
			Expect(err.(*multierror.Error).Errors).To(HaveLen(1))
			Expect(err.Error()).To(ContainSubstring("stages X -> Z -> Y -> X form a dependency cycle"))
		})
		It("should accept diamonds", func() {
			c := &Catalogue{Stages: []*Stage{
				{Name: "CON", Module: "marble"},
				{Name: "L", Module: "jade", DependsOn: `completed("CON")`},
				{Name: "R", Module: "jade", DependsOn: `completed("CON")`},
				{Name: "END", Module: "jade", DependsOn: `final("L") && final("R")`},
			}}
			Expect(c.Validate(modules)).To(Succeed())
		})
	})

	Describe("lookups", func() {
		var c *Catalogue
		BeforeEach(func() {
			var err error
			c, err = ParseYAML([]byte(yamlCatalogue))
			Expect(err).NotTo(HaveOccurred())
		})
		It("should find stages by name", func() {
			st, err := c.Stage("ANTHRO")
			Expect(err).NotTo(HaveOccurred())
			Expect(st.DisplayLabel()).To(Equal("Anthropometry"))
			_, err = c.Stage("NOPE")
			Expect(err).To(MatchError(StageNotFoundError{Name: "NOPE"}))
		})
		It("should filter stages with a glob", func() {
			out, err := c.Filtered("A*")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(1))
			Expect(out[0].Name).To(Equal("ANTHRO"))
		})
		It("should find dependents", func() {
			deps := c.Dependents("CON")
			Expect(deps).To(HaveLen(2))
			Expect(c.Dependents("BP")).To(BeEmpty())
		})
	})

	Describe("dependency conditions", func() {
		It("should be satisfied without a condition", func() {
			ok, err := (&Stage{Name: "CON"}).IsSatisfied(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})
		It("should evaluate against the other stages", func() {
			st := &Stage{Name: "BP", DependsOn: `completed("CON") && !skipped("ANTHRO")`}
			ok, err := st.IsSatisfied(mapView{"CON": "completed", "ANTHRO": "ready"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = st.IsSatisfied(mapView{"CON": "completed", "ANTHRO": "skipped"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			ok, err = st.IsSatisfied(mapView{"CON": "inProgress"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
		It("should support the state function", func() {
			st := &Stage{Name: "Q", DependsOn: `state("CON") in ["completed", "skipped"]`}
			ok, err := st.IsSatisfied(mapView{"CON": "skipped"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})
		It("should list referenced stages", func() {
			st := &Stage{Name: "BP", DependsOn: `completed("CON") || final("ANTHRO")`}
			Expect(st.References()).To(Equal([]string{"CON", "ANTHRO"}))
		})
	})
})
