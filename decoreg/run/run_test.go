package run_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/onsi/gomega"

	"github.com/toejough/decoreg"
	"github.com/toejough/decoreg/decoreg/run"
	"github.com/toejough/decoreg/internal/config"
	"github.com/toejough/decoreg/jsparse"
)

const (
	annotated = "@component()\nclass Foo {}\n"
	rewritten = "import * as Register from \"app-decorators-helper/register-document\";\n" +
		"import * as storage from \"app-decorators-helper/registry-storage\";\n\n" +
		"@component()\nclass Foo {}\nRegister.Register.customElement(Foo, storage.storage);\n"
)

func TestTransformRewritesSelectedFiles(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{
		"src/a.js":              annotated,
		"src/b.js":              "let x = 1;\n",
		"src/e.ts":              annotated,
		"src/f.mjs":             annotated,
		"node_modules/lib/c.js": annotated,
		".hidden/d.js":          annotated,
	})

	res := runCLI(mockFS, "transform", "--no-cache")

	g.Expect(res.err).NotTo(gomega.HaveOccurred())
	g.Expect(res.stdout).To(gomega.Equal("src/a.js written successfully.\nsrc/f.mjs written successfully.\n"))
	g.Expect(mockFS.content(t, "src/a.js")).To(gomega.Equal(rewritten))
	g.Expect(mockFS.content(t, "src/f.mjs")).To(gomega.Equal(rewritten))
	g.Expect(mockFS.content(t, "node_modules/lib/c.js")).To(gomega.Equal(annotated))
	g.Expect(mockFS.sourceWrites()).To(gomega.Equal([]string{"src/a.js", "src/f.mjs"}))
}

func TestTransformTwiceWritesOnce(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{"a.js": annotated})

	g.Expect(runCLI(mockFS, "transform").err).NotTo(gomega.HaveOccurred())

	res := runCLI(mockFS, "transform")
	g.Expect(res.err).NotTo(gomega.HaveOccurred())
	g.Expect(res.stdout).To(gomega.BeEmpty())
	g.Expect(mockFS.sourceWrites()).To(gomega.Equal([]string{"a.js"}))
	g.Expect(mockFS.content(t, "a.js")).To(gomega.Equal(rewritten))
}

func TestTransformCheck(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{"a.js": annotated, "b.js": "let x = 1;\n"})

	res := runCLI(mockFS, "transform", "--check")

	g.Expect(res.err).To(gomega.MatchError(run.ErrWouldChange))
	g.Expect(res.stdout).To(gomega.Equal("a.js would change\n"))
	g.Expect(mockFS.sourceWrites()).To(gomega.BeEmpty())

	clean := newMockFS(map[string]string{"a.js": rewritten})
	g.Expect(runCLI(clean, "transform", "--check").err).NotTo(gomega.HaveOccurred())
}

func TestTransformStdout(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{"a.js": annotated})

	res := runCLI(mockFS, "transform", "--stdout", "a.js")

	g.Expect(res.err).NotTo(gomega.HaveOccurred())
	g.Expect(res.stdout).To(gomega.Equal(rewritten))
	g.Expect(mockFS.sourceWrites()).To(gomega.BeEmpty())
}

func TestTransformContinuesPastParseErrors(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{
		"a.js":   annotated,
		"bad.js": "let s = \"unterminated\n",
	})

	res := runCLI(mockFS, "transform", "--no-cache")

	g.Expect(res.err).To(gomega.MatchError(jsparse.ErrSyntax))
	g.Expect(res.err.Error()).To(gomega.ContainSubstring("bad.js: "))
	g.Expect(mockFS.content(t, "a.js")).To(gomega.Equal(rewritten))
}

func TestTransformReportJSON(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{"a.js": annotated, "b.js": "let x = 1;\n"})

	res := runCLI(mockFS, "transform", "--write=false", "--report", "json")
	g.Expect(res.err).NotTo(gomega.HaveOccurred())

	var reports []decoreg.Report

	g.Expect(json.Unmarshal([]byte(res.stdout), &reports)).To(gomega.Succeed())
	g.Expect(reports).To(gomega.HaveLen(2))

	g.Expect(reports[0].File).To(gomega.Equal("a.js"))
	g.Expect(reports[0].State).To(gomega.Equal(decoreg.StateRewritten))
	g.Expect(reports[0].Classes).To(gomega.Equal([]string{"Foo"}))
	g.Expect(reports[0].Inserted).To(gomega.Equal(1))
	g.Expect(reports[0].Bindings).To(gomega.HaveLen(2))
	g.Expect(reports[0].Bindings[1].LocalName).To(gomega.Equal("storage"))
	g.Expect(reports[0].Bindings[1].Kind).To(gomega.Equal(decoreg.BindingNamespace))

	g.Expect(reports[1].File).To(gomega.Equal("b.js"))
	g.Expect(reports[1].State).To(gomega.Equal(decoreg.StateScanned))
	g.Expect(mockFS.sourceWrites()).To(gomega.BeEmpty())

	g.Expect(runCLI(mockFS, "transform", "--report", "yaml").err).To(gomega.HaveOccurred())
}

func TestTransformReportJSONWhileWriting(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{"a.js": annotated})

	res := runCLI(mockFS, "transform", "--no-cache", "--report", "json")
	g.Expect(res.err).NotTo(gomega.HaveOccurred())

	var reports []decoreg.Report

	g.Expect(json.Unmarshal([]byte(res.stdout), &reports)).To(gomega.Succeed())
	g.Expect(reports).To(gomega.HaveLen(1))
	g.Expect(reports[0].Inserted).To(gomega.Equal(1))
	g.Expect(res.stderr).To(gomega.ContainSubstring("a.js written successfully."))
	g.Expect(mockFS.content(t, "a.js")).To(gomega.Equal(rewritten))
}

func TestTransformUsesCache(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{"a.js": annotated})

	first := runCLI(mockFS, "transform", "--check", "--log-level", "debug")
	g.Expect(first.err).To(gomega.MatchError(run.ErrWouldChange))
	g.Expect(first.stderr).NotTo(gomega.ContainSubstring("cache hit"))

	second := runCLI(mockFS, "transform", "--check", "--log-level", "debug")
	g.Expect(second.err).To(gomega.MatchError(run.ErrWouldChange))
	g.Expect(second.stdout).To(gomega.Equal(first.stdout))
	g.Expect(second.stderr).To(gomega.ContainSubstring("cache hit"))

	other := runCLI(mockFS, "transform", "--check", "--log-level", "debug", "--naming", "underscore")
	g.Expect(other.stderr).NotTo(gomega.ContainSubstring("cache hit"))
}

func TestConfigFileAndFlags(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{
		config.FileName: "annotation: element\nnaming: underscore\n",
		"a.js":          "@element()\nclass Foo {}\n",
		"b.js":          annotated,
	})

	res := runCLI(mockFS, "transform", "a.js")
	g.Expect(res.err).NotTo(gomega.HaveOccurred())
	g.Expect(mockFS.content(t, "a.js")).To(gomega.ContainSubstring(
		"\n_Register.Register.customElement(Foo, _storage.storage);\n",
	))

	res = runCLI(mockFS, "transform", "--annotation", "component", "--naming", "plain", "b.js")
	g.Expect(res.err).NotTo(gomega.HaveOccurred())
	g.Expect(mockFS.content(t, "b.js")).To(gomega.Equal(rewritten))
}

func TestEnvironmentOverridesConfig(t *testing.T) {
	t.Setenv("DECOREG_NAMING", "underscore")
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{"a.js": annotated})

	res := runCLI(mockFS, "transform", "--stdout", "a.js")
	g.Expect(res.err).NotTo(gomega.HaveOccurred())
	g.Expect(res.stdout).To(gomega.ContainSubstring("_Register.Register.customElement(Foo, _storage.storage);"))
}

func TestInvalidConfiguration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  string
		args    []string
		wantErr error
	}{
		{name: "schema violation", config: "naming: camel\n", wantErr: config.ErrInvalid},
		{
			name:    "one import",
			config:  "imports:\n  - importName: Register\n    source: reg\n",
			wantErr: decoreg.ErrConfiguration,
		},
		{name: "bad annotation flag", args: []string{"--annotation", "my-component"}, wantErr: decoreg.ErrConfiguration},
		{name: "bad naming flag", args: []string{"--naming", "camel"}, wantErr: config.ErrInvalid},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			g := gomega.NewWithT(t)

			files := map[string]string{"a.js": annotated}
			if testCase.config != "" {
				files[config.FileName] = testCase.config
			}

			mockFS := newMockFS(files)

			res := runCLI(mockFS, append([]string{"transform"}, testCase.args...)...)
			g.Expect(res.err).To(gomega.MatchError(testCase.wantErr))
			g.Expect(mockFS.content(t, "a.js")).To(gomega.Equal(annotated))
		})
	}
}

func TestInvalidGlob(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{config.FileName: "include: ['src/[']\n"})

	res := runCLI(mockFS, "transform")
	g.Expect(res.err).To(gomega.HaveOccurred())
	g.Expect(res.err.Error()).To(gomega.ContainSubstring("invalid glob pattern"))
}

func TestConfigInit(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(nil)

	res := runCLI(mockFS, "config", "init")
	g.Expect(res.err).NotTo(gomega.HaveOccurred())
	g.Expect(res.stdout).To(gomega.Equal(".decoreg.yaml written successfully.\n"))

	file, err := config.Parse([]byte(mockFS.content(t, config.FileName)))
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(file).To(gomega.Equal(config.Default()))

	g.Expect(runCLI(mockFS, "config", "init").err).To(gomega.MatchError(run.ErrConfigExists))
	g.Expect(runCLI(mockFS, "config", "init", "--force").err).NotTo(gomega.HaveOccurred())
}

func TestConfigInitIgnoresBrokenConfig(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{config.FileName: "naming: camel\n"})

	res := runCLI(mockFS, "config", "init", "--force")
	g.Expect(res.err).NotTo(gomega.HaveOccurred())
	g.Expect(mockFS.content(t, config.FileName)).To(gomega.ContainSubstring("naming: plain"))
}

func TestConfigShow(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	res := runCLI(newMockFS(nil), "config", "show", "--naming", "underscore")

	g.Expect(res.err).NotTo(gomega.HaveOccurred())
	g.Expect(res.stdout).To(gomega.ContainSubstring("naming: underscore"))
	g.Expect(res.stdout).To(gomega.ContainSubstring("source: app-decorators-helper/registry-storage"))
}

func TestVersion(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	res := runCLI(newMockFS(nil), "version")

	g.Expect(res.err).NotTo(gomega.HaveOccurred())
	g.Expect(res.stdout).To(gomega.Equal("decoreg " + run.Version + "\n"))
}

func TestJSONLogs(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	mockFS := newMockFS(map[string]string{"a.js": annotated})

	res := runCLI(mockFS, "transform", "--log-level", "info", "--log-format", "json")

	g.Expect(res.err).NotTo(gomega.HaveOccurred())
	g.Expect(res.stderr).To(gomega.ContainSubstring(`"msg":"rewrote file"`))
	g.Expect(res.stderr).To(gomega.ContainSubstring(`"file":"a.js"`))
}
