// Package recipe implements the Backend Spec Table (C3): a static map from
// recipe name to executable name, install-params deriver, capability set,
// and OS-support predicate.
package recipe

// Capability names the inference operations an engine may support.
type Capability string

const (
	CapChatCompletion  Capability = "chat/completion"
	CapEmbeddings      Capability = "embeddings"
	CapReranking       Capability = "reranking"
	CapImageGenerate   Capability = "image-generate"
	CapImageEdit       Capability = "image-edit"
	CapImageVariation  Capability = "image-variation"
	CapAudioTranscribe Capability = "audio-transcribe"
	CapAudioSpeak      Capability = "audio-speak"
)

// CapabilitySet is the subset of Capability an engine declares.
type CapabilitySet map[Capability]bool

// Has reports whether the set includes c.
func (s CapabilitySet) Has(c Capability) bool { return s[c] }

// NewCapabilitySet builds a CapabilitySet from a list of capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = true
	}
	return s
}

// InstallParams names what Artifact Store needs to download one
// (recipe, backend, version): the source repository, the OS/arch-specific
// archive filename, and the release tag to fetch it from.
type InstallParams struct {
	Repo     string // "owner/name" GitHub repository
	Filename string // archive asset name for the current host
	Tag      string // release tag (usually "v"+version)
}

// Spec describes one recipe: its executable name per OS, its capability
// set, its OS-support predicate, and how to derive install params for a
// given backend/version.
type Spec struct {
	Name         string
	Capabilities CapabilitySet

	// ExeName returns the executable filename for goos ("windows" gets
	// ".exe" appended by convention where applicable).
	ExeName func(goos string) string

	// SupportsHost reports whether this recipe can run at all on the
	// current host (OS/arch, and for hardware-gated recipes, device
	// presence).
	SupportsHost func() (bool, string)

	// InstallParams derives the (repo, filename, tag) for a given backend
	// and required version string.
	InstallParams func(backend, requiredVersion, goos, goarch string) InstallParams

	// DefaultBackend is the backend chosen when a request does not name
	// one explicitly.
	DefaultBackend func(goos, goarch string) string

	// ExternalInstaller is true for recipes whose backend lifecycle is
	// owned by a vendor installer rather than the Artifact Store (see
	// DESIGN.md Open Question 1: ryzen-ai).
	ExternalInstaller bool
}

// Table is the static recipe→Spec map, keyed by recipe name.
type Table map[string]Spec

// Get returns the Spec for name and whether it exists.
func (t Table) Get(name string) (Spec, bool) {
	s, ok := t[name]
	return s, ok
}

// Recipes returns the recipe names in the table, useful for iterating the
// full spec table deterministically by the caller sorting as needed.
func (t Table) Recipes() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	return names
}
