package recipe

import (
	"fmt"
	"runtime"
)

func exeName(base string) func(goos string) string {
	return func(goos string) string {
		if goos == "windows" {
			return base + ".exe"
		}
		return base
	}
}

func ghReleaseParams(repo, assetPrefix string) func(backend, version, goos, goarch string) InstallParams {
	return func(backend, version, goos, goarch string) InstallParams {
		ext := "tar.gz"
		if goos == "windows" {
			ext = "zip"
		}
		return InstallParams{
			Repo:     repo,
			Filename: fmt.Sprintf("%s-%s-%s-%s.%s", assetPrefix, backend, goos, goarch, ext),
			Tag:      "v" + version,
		}
	}
}

// DefaultTable is the statically-known recipe set: gpu-llama, npu-llm,
// diffusion, whisper, tts, ryzen-ai.
func DefaultTable() Table {
	return Table{
		"gpu-llama": {
			Name: "gpu-llama",
			Capabilities: NewCapabilitySet(
				CapChatCompletion, CapEmbeddings, CapReranking,
			),
			ExeName: exeName("llama-server"),
			SupportsHost: func() (bool, string) {
				return true, ""
			},
			DefaultBackend: func(goos, goarch string) string {
				switch {
				case hasVendorGPU("amd"):
					return "rocm"
				case hasVendorGPU("nvidia"), hasVendorGPU("intel"):
					return "vulkan"
				default:
					return "cpu"
				}
			},
			InstallParams: ghReleaseParams("lemonade-sdk/llama.cpp-builds", "llama-server"),
		},
		"npu-llm": {
			Name:         "npu-llm",
			Capabilities: NewCapabilitySet(CapChatCompletion),
			ExeName:      exeName("npu-llm-server"),
			SupportsHost: func() (bool, string) {
				if runtime.GOOS != "windows" {
					return false, "NPU-only engine requires Windows"
				}
				if !hasVendorGPU("amd") && !hasVendorGPU("intel") {
					return false, "no supported NPU device detected"
				}
				return true, ""
			},
			DefaultBackend: func(goos, goarch string) string { return "npu" },
			InstallParams:  ghReleaseParams("lemonade-sdk/npu-llm-builds", "npu-llm-server"),
		},
		"diffusion": {
			Name: "diffusion",
			Capabilities: NewCapabilitySet(
				CapImageGenerate, CapImageEdit, CapImageVariation,
			),
			ExeName: exeName("stable-diffusion-server"),
			SupportsHost: func() (bool, string) {
				return true, ""
			},
			DefaultBackend: func(goos, goarch string) string {
				if hasVendorGPU("amd") || hasVendorGPU("nvidia") || hasVendorGPU("intel") {
					return "vulkan"
				}
				return "cpu"
			},
			InstallParams: ghReleaseParams("lemonade-sdk/sd-builds", "stable-diffusion-server"),
		},
		"whisper": {
			Name:         "whisper",
			Capabilities: NewCapabilitySet(CapAudioTranscribe),
			ExeName:      exeName("whisper-server"),
			SupportsHost: func() (bool, string) {
				return true, ""
			},
			DefaultBackend: func(goos, goarch string) string {
				if hasVendorGPU("amd") || hasVendorGPU("nvidia") || hasVendorGPU("intel") {
					return "vulkan"
				}
				return "cpu"
			},
			InstallParams: ghReleaseParams("lemonade-sdk/whisper-builds", "whisper-server"),
		},
		"tts": {
			Name:         "tts",
			Capabilities: NewCapabilitySet(CapAudioSpeak),
			ExeName:      exeName("tts-server"),
			SupportsHost: func() (bool, string) {
				return true, ""
			},
			DefaultBackend: func(goos, goarch string) string { return "cpu" },
			InstallParams:  ghReleaseParams("lemonade-sdk/tts-builds", "tts-server"),
		},
		"ryzen-ai": {
			Name:         "ryzen-ai",
			Capabilities: NewCapabilitySet(CapChatCompletion, CapEmbeddings),
			ExeName:      exeName("ryzen-ai-llm-server"),
			SupportsHost: func() (bool, string) {
				if runtime.GOOS != "windows" {
					return false, "Ryzen AI backend requires Windows"
				}
				if !hasVendorGPU("amd") {
					return false, "no AMD Ryzen AI device detected"
				}
				return true, ""
			},
			DefaultBackend:    func(goos, goarch string) string { return "ryzen-ai" },
			ExternalInstaller: true,
			InstallParams: func(backend, version, goos, goarch string) InstallParams {
				// The vendor installer owns its own archive naming and
				// release channel; the Artifact Store never downloads it
				// directly, so InstallParams here is informational only.
				return InstallParams{Repo: "amd/ryzen-ai-software", Tag: "v" + version}
			},
		},
	}
}
