package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lemonade-sdk/lemon-server/pkg/engine"
)

func TestFingerprintIsOrderIndependent(t *testing.T) {
	a := engine.LoadOptions{"context_size": float64(4096), "backend": "vulkan"}
	b := engine.LoadOptions{"backend": "vulkan", "context_size": float64(4096)}

	require.Equal(t, Fingerprint(a), Fingerprint(b), "key order must not change the fingerprint")
	require.Len(t, Fingerprint(a), 16)
}

func TestFingerprintEmptyOptsIsEmptyString(t *testing.T) {
	require.Equal(t, "", Fingerprint(nil))
	require.Equal(t, "", Fingerprint(engine.LoadOptions{}))
}

func TestFingerprintDiffersOnValueChange(t *testing.T) {
	a := engine.LoadOptions{"context_size": float64(2048)}
	b := engine.LoadOptions{"context_size": float64(4096)}
	require.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFastPathMatchHitsOnSameModelAndFingerprint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	eng := newMockEngine(ctrl, "gpu-llama", "vulkan")
	require.NoError(t, eng.Load(t.Context(), "/models/llama.gguf", "fp1", nil))

	s := &slot{eng: eng}

	got, ok := fastPathMatch(s, "/models/llama.gguf", "fp1")
	require.True(t, ok)
	require.Same(t, eng, got)
}

func TestFastPathMatchMissesOnDifferentFingerprint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	eng := newMockEngine(ctrl, "gpu-llama", "vulkan")
	require.NoError(t, eng.Load(t.Context(), "/models/llama.gguf", "fp1", nil))

	s := &slot{eng: eng}

	_, ok := fastPathMatch(s, "/models/llama.gguf", "fp2")
	require.False(t, ok, "a different options fingerprint must not fast-path")
}

func TestFastPathMatchMissesWhenNotReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	eng := newMockEngine(ctrl, "gpu-llama", "vulkan")
	eng.model, eng.fp, eng.state = "/models/llama.gguf", "fp1", engine.StateStarting

	s := &slot{eng: eng}

	_, ok := fastPathMatch(s, "/models/llama.gguf", "fp1")
	require.False(t, ok, "a starting engine has not proven it serves this fingerprint yet")
}

func TestFastPathMatchMissesOnEmptySlot(t *testing.T) {
	s := &slot{}
	_, ok := fastPathMatch(s, "anything", "")
	require.False(t, ok)
}

func TestSlotKeyIsStableAndDistinguishesBackends(t *testing.T) {
	require.Equal(t, "gpu-llama/vulkan", slotKey("gpu-llama", "vulkan"))
	require.NotEqual(t, slotKey("gpu-llama", "vulkan"), slotKey("gpu-llama", "cpu"))
}

func TestStripVariantDropsTag(t *testing.T) {
	require.Equal(t, "org/repo", stripVariant("org/repo:Q4_K_M"))
	require.Equal(t, "org/repo", stripVariant("org/repo"))
}

func TestExtraFlagsForBuildsEnvName(t *testing.T) {
	t.Setenv("LEMON_GPU_LLAMA_EXTRA_FLAGS", "--flash-attn")
	require.Equal(t, "--flash-attn", extraFlagsFor("gpu-llama"))
}

func TestSlotTryLockRejectsWhenAlreadyHeld(t *testing.T) {
	s := &slot{}
	s.mu.Lock()
	defer s.mu.Unlock()

	locked := s.mu.TryLock()
	require.False(t, locked, "a slot already held by a concurrent pre-flight must reject, not block")
}
