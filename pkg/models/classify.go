package models

import (
	"path/filepath"
	"strings"
)

// FileType is the role a downloaded model file plays, used by the Model
// Download Pipeline (via GroupFilesByType) to pick which repo files to
// fetch.
type FileType int

const (
	FileUnknown FileType = iota
	FileGGUF
	FileSafetensors
	FileConfig
	FileLicense
	FileChatTemplate
)

func (ft FileType) String() string {
	switch ft {
	case FileGGUF:
		return "gguf"
	case FileSafetensors:
		return "safetensors"
	case FileConfig:
		return "config"
	case FileLicense:
		return "license"
	case FileChatTemplate:
		return "chat_template"
	default:
		return "unknown"
	}
}

var (
	configExtensions     = []string{".md", ".txt", ".json", ".vocab"}
	configFilenames      = []string{"tokenizer.model"}
	chatTemplateExt      = []string{".jinja"}
	licenseNameFragments = []string{"license", "licence", "copying", "notice"}
)

// ClassifyFile determines a downloaded file's role from its name alone.
// GGUF and Safetensors are checked first since those extensions never
// collide with the config/license patterns below.
func ClassifyFile(name string) FileType {
	lower := strings.ToLower(name)
	base := filepath.Base(lower)

	switch {
	case strings.HasSuffix(lower, ".gguf"):
		return FileGGUF
	case strings.HasSuffix(lower, ".safetensors"):
		return FileSafetensors
	}

	for _, ext := range chatTemplateExt {
		if strings.HasSuffix(lower, ext) {
			return FileChatTemplate
		}
	}
	if strings.Contains(lower, "chat_template") {
		return FileChatTemplate
	}

	for _, frag := range licenseNameFragments {
		if strings.Contains(base, frag) {
			return FileLicense
		}
	}

	for _, ext := range configExtensions {
		if strings.HasSuffix(lower, ext) {
			return FileConfig
		}
	}
	for _, special := range configFilenames {
		if strings.EqualFold(name, special) {
			return FileConfig
		}
	}

	return FileUnknown
}

// IsWeightFile reports whether name is a GGUF or Safetensors checkpoint
// shard.
func IsWeightFile(name string) bool {
	switch ClassifyFile(name) {
	case FileGGUF, FileSafetensors:
		return true
	default:
		return false
	}
}

// IsAuxiliaryFile reports whether name is metadata that accompanies the
// weights rather than being weights itself (config, chat template).
func IsAuxiliaryFile(name string) bool {
	switch ClassifyFile(name) {
	case FileConfig, FileChatTemplate:
		return true
	default:
		return false
	}
}

// GroupFilesByType partitions names into weights/configs/templates/licenses/
// unrecognized buckets, preserving input order within each bucket.
func GroupFilesByType(names []string) (weights, configs, templates, licenses, unknown []string) {
	for _, name := range names {
		switch ClassifyFile(filepath.Base(name)) {
		case FileGGUF, FileSafetensors:
			weights = append(weights, name)
		case FileConfig:
			configs = append(configs, name)
		case FileChatTemplate:
			templates = append(templates, name)
		case FileLicense:
			licenses = append(licenses, name)
		default:
			unknown = append(unknown, name)
		}
	}
	return
}
