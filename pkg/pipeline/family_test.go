package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFamily(t *testing.T) {
	tests := []struct {
		model  string
		family string
	}{
		{"wan2.2_t2v_high_noise_14B_fp8.safetensors", FamilyWan},
		{"WAN2.2-T2V-A14B", FamilyWan},
		{"wan2.2_i2v_high_noise_14B.safetensors", FamilyWanI2V},
		{"wan2.2_s2v_14b.safetensors", FamilyWanS2V},
		{"hunyuan_video_t2v_720p.safetensors", FamilyHunyuan},
		{"ltxv-2b-0.9.5.safetensors", FamilyLTXV},
		{"ltx-video-2b.safetensors", FamilyLTXV},
		{"mochi_preview_bf16.safetensors", FamilyMochi},
		{"flux1-dev.safetensors", FamilyFlux},
		{"FLUX.1-schnell", FamilyFlux},
		{"hidream_i1_full.safetensors", FamilyHiDream},
		{"lumina_2.safetensors", FamilyLumina},
		{"sd3.5_medium.safetensors", FamilySD3},
		{"epicphotogasm_inpainting.safetensors", FamilyInpaint},
		{"4x_foolhardy_upscale.pth", FamilyUpscale},
		{"RealESRGAN_x4plus.pth", FamilyUpscale},
		{"sd_xl_refiner_1.0.safetensors", FamilySDXLRefiner},
		{"sd_xl_base_1.0.safetensors", FamilySDXL},
		{"juggernautXL_v9.safetensors", FamilySDXL},
		{"v1-5-pruned-emaonly.safetensors", FamilySD},
		{"dreamshaper_8.safetensors", FamilySD},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.family, DetectFamily(tt.model))
		})
	}
}

func TestDetectFamily_WanRoutesToDualModel(t *testing.T) {
	// "wan" in any casing lands on the two-model high/low topology unless a
	// more specific variant keyword intervenes.
	for _, model := range []string{"wan2.2", "Wan2.2", "WAN2.2", "my_wAn_finetune"} {
		family := DetectFamily(model)
		require.Equal(t, FamilyWan, family, "model %q", model)

		fam, ok := FamilyByName(family)
		require.True(t, ok)
		assert.Equal(t, SamplerDualModel, fam.Sampler)
	}
}

func TestDetectFamily_SpecificKeywordsBeforeGeneric(t *testing.T) {
	// "wan2.2_i2v" contains both "i2v" and "wan"; the declared order decides.
	assert.Equal(t, FamilyWanI2V, DetectFamily("wan2.2_i2v"))
	assert.Equal(t, FamilyWanS2V, DetectFamily("wan2.2_s2v"))
	assert.Equal(t, FamilySDXLRefiner, DetectFamily("sd_xl_refiner"))

	keywords := Keywords()
	require.GreaterOrEqual(t, len(keywords), 3)
	assert.Equal(t, []string{"s2v", "i2v", "wan"}, keywords[:3])
}

func TestFamilyByName(t *testing.T) {
	fam, ok := FamilyByName(FamilyFlux)
	require.True(t, ok)
	assert.Equal(t, FamilyFlux, fam.Name)
	assert.True(t, fam.ZeroNegative)

	_, ok = FamilyByName("does-not-exist")
	assert.False(t, ok)
}

func TestFamilyNames_CoversEveryDispatchTarget(t *testing.T) {
	names := FamilyNames()
	assert.Len(t, names, 16)

	registered := make(map[string]bool, len(names))
	for _, name := range names {
		registered[name] = true
	}

	for _, keyword := range Keywords() {
		family := DetectFamily(keyword)
		assert.True(t, registered[family], "keyword %q dispatches to unregistered family %q", keyword, family)
	}
}
