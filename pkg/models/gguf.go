package models

import (
	"strings"

	parser "github.com/gpustack/gguf-parser-go"
)

// GGUFInfo summarizes the header metadata of a single GGUF checkpoint:
// enough to pick a sane default context window without the caller needing
// to link against the parser directly.
type GGUFInfo struct {
	Architecture  string
	Parameters    string
	Quantization  string
	ContextLength uint32
}

// InspectGGUF reads path's GGUF header and returns its metadata. A
// malformed or non-GGUF file (e.g. a safetensors checkpoint) returns an
// error; callers that only want a best-effort default should treat that
// as "no metadata available" rather than a fatal condition.
func InspectGGUF(path string) (GGUFInfo, error) {
	gf, err := parser.ParseGGUFFile(path)
	if err != nil {
		return GGUFInfo{}, err
	}

	meta := gf.Metadata()
	info := GGUFInfo{
		Architecture: strings.TrimSpace(meta.Architecture),
		Parameters:   meta.Parameters.String(),
		Quantization: meta.FileType.String(),
	}

	if arch, found := gf.Header.MetadataKV.Get("general.architecture"); found {
		if cl, found := gf.Header.MetadataKV.Get(arch.ValueString() + ".context_length"); found {
			info.ContextLength = cl.ValueUint32()
		}
	}
	return info, nil
}
