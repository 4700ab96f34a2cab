package models

// catalog lists known models that ship no local registration until a user
// pulls them; it backs GET /models?show_all so a client can offer a model
// before anything has been downloaded.
var catalog = []ModelInfo{
	{Name: "qwen2.5-7b-instruct", Checkpoint: "Qwen/Qwen2.5-7B-Instruct-GGUF:Q4_K_M", Recipe: "gpu-llama", Reasoning: true},
	{Name: "llama-3.1-8b-instruct", Checkpoint: "meta-llama/Llama-3.1-8B-Instruct-GGUF:Q4_K_M", Recipe: "gpu-llama", Reasoning: true},
	{Name: "llava-1.6-mistral-7b", Checkpoint: "llava-hf/llava-v1.6-mistral-7b-GGUF:Q4_K_M", Recipe: "gpu-llama", Reasoning: true, Vision: true, Mmproj: "mmproj-model-f16.gguf"},
	{Name: "nomic-embed-text-v1.5", Checkpoint: "nomic-ai/nomic-embed-text-v1.5-GGUF:f16", Recipe: "gpu-llama", Embedding: true},
	{Name: "bge-reranker-v2-m3", Checkpoint: "BAAI/bge-reranker-v2-m3-GGUF:f16", Recipe: "gpu-llama", Reranking: true},
	{Name: "stable-diffusion-xl-base", Checkpoint: "stabilityai/stable-diffusion-xl-base-1.0", Recipe: "diffusion"},
	{Name: "whisper-large-v3", Checkpoint: "ggerganov/whisper.cpp:large-v3", Recipe: "whisper"},
	{Name: "kokoro-82m", Checkpoint: "hexgrad/Kokoro-82M", Recipe: "tts"},
	{Name: "qwen2.5-3b-npu", Checkpoint: "amd/Qwen2.5-3B-Instruct-NPU", Recipe: "npu-llm", Reasoning: true},
}

// lookupCatalog returns the static catalog entry for name, if any.
func lookupCatalog(name string) (ModelInfo, bool) {
	for _, m := range catalog {
		if m.Name == name {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// Catalog returns a copy of the static known-models list, for GET
// /models?show_all.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, len(catalog))
	copy(out, catalog)
	return out
}
