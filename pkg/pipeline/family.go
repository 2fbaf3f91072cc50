package pipeline

import "strings"

// LoadKind selects how base weights are loaded.
type LoadKind string

const (
	// LoadCheckpoint is one combined load yielding model, clip, and vae.
	LoadCheckpoint LoadKind = "checkpoint"
	// LoadSplit loads diffusion weights, text encoder(s), and vae separately.
	LoadSplit LoadKind = "split"
)

// PatchKind selects the optional model-space reparameterization node.
type PatchKind string

const (
	PatchNone  PatchKind = ""
	PatchShift PatchKind = "shift" // ModelSamplingSD3-style flow shift
	PatchFlux  PatchKind = "flux"  // resolution-dependent flux shift
)

// SamplerKind selects the sampling topology.
type SamplerKind string

const (
	// SamplerSingle is one KSampler call.
	SamplerSingle SamplerKind = "single"
	// SamplerDualModel runs a high-noise model for the first
	// steps*SwitchRatio steps and hands the partially denoised latent to a
	// low-noise model for the remainder.
	SamplerDualModel SamplerKind = "dual_model"
	// SamplerRefinerPair is the base/refiner two-checkpoint handoff, the
	// refiner consuming conditioning from its own text encoder.
	SamplerRefinerPair SamplerKind = "refiner_pair"
	// SamplerTwoStage samples, upscales the latent, and samples again at
	// reduced denoise (hi-res fix).
	SamplerTwoStage SamplerKind = "two_stage"
	// SamplerCustom composes noise, guider, sampler selector, and sigma
	// schedule as independent nodes (guidance-free families).
	SamplerCustom SamplerKind = "custom"
	// SamplerNone skips sampling entirely (pixel-space upscale).
	SamplerNone SamplerKind = "none"
)

// DecodeKind selects the latent-to-pixel topology.
type DecodeKind string

const (
	DecodePlain DecodeKind = "plain"
	DecodeTiled DecodeKind = "tiled"
	// DecodeAudioVideo adds a parallel audio-latent decode path.
	DecodeAudioVideo DecodeKind = "audio_video"
	DecodeNone       DecodeKind = "none"
)

// OutputKind selects the terminal node.
type OutputKind string

const (
	OutputImage OutputKind = "image"
	OutputVideo OutputKind = "video"
)

// BridgeKind selects the conditioning-bridge node for image-input variants.
type BridgeKind string

const (
	BridgeNone       BridgeKind = ""
	BridgeImageVideo BridgeKind = "image_to_video"
)

// LatentSpec names the empty-latent node class of a family. The implicit
// channel count and dimensionality live inside the engine node; Temporal
// families also wire a frame length.
type LatentSpec struct {
	Class    string
	Temporal bool
}

// Family is one architecture topology strategy, expressed as the axes the
// generic assembler varies over.
type Family struct {
	Name string

	Load            LoadKind
	ClipArity       int    // split loads: how many text encoder files
	ClipType        string // engine-side encoder type tag for split loads
	ZeroNegative    bool   // synthesize negative by zeroing the positive
	Guidance        bool   // guidance-embedding node on the positive branch
	Patch           PatchKind
	PatchBeforeLora bool // patch/LoRA order is architecture-mandated
	LoraModelOnly   bool // independent text encoders: model-only LoRA chain
	Inpaint         bool
	UpscaleOnly     bool

	Latent  LatentSpec
	Bridge  BridgeKind
	Sampler SamplerKind
	// SwitchRatio is the fixed fraction of steps the first model of a
	// two-model pass handles.
	SwitchRatio float64
	Decode      DecodeKind
	Output      OutputKind

	DefaultWidth     int
	DefaultHeight    int
	DefaultSteps     int
	DefaultCFG       float64
	DefaultGuidance  float64
	DefaultShift     float64
	DefaultSampler   string
	DefaultScheduler string
	DefaultFrames    int
	DefaultFPS       int
}

// Family names.
const (
	FamilySD          = "sd"
	FamilySDXL        = "sdxl"
	FamilySDXLRefiner = "sdxl_refiner"
	FamilySD3         = "sd3"
	FamilyFlux        = "flux"
	FamilyHiDream     = "hidream"
	FamilyLumina      = "lumina"
	FamilyHires       = "hires"
	FamilyInpaint     = "inpaint"
	FamilyUpscale     = "upscale"
	FamilyWan         = "wan"
	FamilyWanI2V      = "wan_i2v"
	FamilyWanS2V      = "wan_s2v"
	FamilyHunyuan     = "hunyuan_video"
	FamilyLTXV        = "ltxv"
	FamilyMochi       = "mochi"
)

var families = map[string]Family{
	FamilySD: {
		Name: FamilySD, Load: LoadCheckpoint,
		Latent:  LatentSpec{Class: "EmptyLatentImage"},
		Sampler: SamplerSingle, Decode: DecodePlain, Output: OutputImage,
		DefaultWidth: 512, DefaultHeight: 512, DefaultSteps: 20, DefaultCFG: 7.0,
		DefaultSampler: "euler", DefaultScheduler: "normal",
	},
	FamilySDXL: {
		Name: FamilySDXL, Load: LoadCheckpoint,
		Latent:  LatentSpec{Class: "EmptyLatentImage"},
		Sampler: SamplerSingle, Decode: DecodePlain, Output: OutputImage,
		DefaultWidth: 1024, DefaultHeight: 1024, DefaultSteps: 25, DefaultCFG: 7.0,
		DefaultSampler: "dpmpp_2m", DefaultScheduler: "karras",
	},
	FamilySDXLRefiner: {
		Name: FamilySDXLRefiner, Load: LoadCheckpoint,
		Latent:  LatentSpec{Class: "EmptyLatentImage"},
		Sampler: SamplerRefinerPair, SwitchRatio: 0.8,
		Decode: DecodePlain, Output: OutputImage,
		DefaultWidth: 1024, DefaultHeight: 1024, DefaultSteps: 25, DefaultCFG: 7.0,
		DefaultSampler: "dpmpp_2m", DefaultScheduler: "karras",
	},
	FamilySD3: {
		Name: FamilySD3, Load: LoadSplit, ClipArity: 3, ClipType: "sd3",
		Patch: PatchShift, PatchBeforeLora: true,
		Latent:  LatentSpec{Class: "EmptySD3LatentImage"},
		Sampler: SamplerSingle, Decode: DecodePlain, Output: OutputImage,
		DefaultWidth: 1024, DefaultHeight: 1024, DefaultSteps: 28, DefaultCFG: 4.5,
		DefaultShift: 3.0, DefaultSampler: "euler", DefaultScheduler: "sgm_uniform",
	},
	FamilyFlux: {
		Name: FamilyFlux, Load: LoadSplit, ClipArity: 2, ClipType: "flux",
		ZeroNegative: true, Guidance: true, LoraModelOnly: true,
		Patch: PatchFlux, PatchBeforeLora: false,
		Latent:  LatentSpec{Class: "EmptySD3LatentImage"},
		Sampler: SamplerSingle, Decode: DecodePlain, Output: OutputImage,
		DefaultWidth: 1024, DefaultHeight: 1024, DefaultSteps: 20, DefaultCFG: 1.0,
		DefaultGuidance: 3.5, DefaultSampler: "euler", DefaultScheduler: "simple",
	},
	FamilyHiDream: {
		Name: FamilyHiDream, Load: LoadSplit, ClipArity: 4, ClipType: "hidream",
		Patch: PatchShift, PatchBeforeLora: true,
		Latent:  LatentSpec{Class: "EmptySD3LatentImage"},
		Sampler: SamplerSingle, Decode: DecodePlain, Output: OutputImage,
		DefaultWidth: 1024, DefaultHeight: 1024, DefaultSteps: 30, DefaultCFG: 5.0,
		DefaultShift: 3.0, DefaultSampler: "euler", DefaultScheduler: "normal",
	},
	FamilyLumina: {
		Name: FamilyLumina, Load: LoadSplit, ClipArity: 1, ClipType: "lumina2",
		Patch: PatchShift, PatchBeforeLora: true,
		Latent:  LatentSpec{Class: "EmptySD3LatentImage"},
		Sampler: SamplerSingle, Decode: DecodePlain, Output: OutputImage,
		DefaultWidth: 1024, DefaultHeight: 1024, DefaultSteps: 30, DefaultCFG: 4.0,
		DefaultShift: 6.0, DefaultSampler: "euler", DefaultScheduler: "normal",
	},
	FamilyHires: {
		Name: FamilyHires, Load: LoadCheckpoint,
		Latent:  LatentSpec{Class: "EmptyLatentImage"},
		Sampler: SamplerTwoStage, Decode: DecodePlain, Output: OutputImage,
		DefaultWidth: 512, DefaultHeight: 512, DefaultSteps: 20, DefaultCFG: 7.0,
		DefaultSampler: "euler", DefaultScheduler: "normal",
	},
	FamilyInpaint: {
		Name: FamilyInpaint, Load: LoadCheckpoint, Inpaint: true,
		Latent:  LatentSpec{Class: "EmptyLatentImage"},
		Sampler: SamplerSingle, Decode: DecodePlain, Output: OutputImage,
		DefaultWidth: 512, DefaultHeight: 512, DefaultSteps: 20, DefaultCFG: 7.0,
		DefaultSampler: "euler", DefaultScheduler: "normal",
	},
	FamilyUpscale: {
		Name: FamilyUpscale, Load: LoadCheckpoint, UpscaleOnly: true,
		Sampler: SamplerNone, Decode: DecodeNone, Output: OutputImage,
		DefaultWidth: 512, DefaultHeight: 512, DefaultSteps: 20, DefaultCFG: 7.0,
		DefaultSampler: "euler", DefaultScheduler: "normal",
	},
	FamilyWan: {
		Name: FamilyWan, Load: LoadSplit, ClipArity: 1, ClipType: "wan",
		LoraModelOnly: true, Patch: PatchShift, PatchBeforeLora: false,
		Latent:  LatentSpec{Class: "EmptyHunyuanLatentVideo", Temporal: true},
		Sampler: SamplerDualModel, SwitchRatio: 0.5,
		Decode: DecodeTiled, Output: OutputVideo,
		DefaultWidth: 832, DefaultHeight: 480, DefaultSteps: 30, DefaultCFG: 3.5,
		DefaultShift: 8.0, DefaultSampler: "euler", DefaultScheduler: "simple",
		DefaultFrames: 81, DefaultFPS: 16,
	},
	FamilyWanI2V: {
		Name: FamilyWanI2V, Load: LoadSplit, ClipArity: 1, ClipType: "wan",
		LoraModelOnly: true, Patch: PatchShift, PatchBeforeLora: false,
		Latent:  LatentSpec{Class: "EmptyHunyuanLatentVideo", Temporal: true},
		Bridge:  BridgeImageVideo,
		Sampler: SamplerSingle, Decode: DecodeTiled, Output: OutputVideo,
		DefaultWidth: 832, DefaultHeight: 480, DefaultSteps: 30, DefaultCFG: 3.5,
		DefaultShift: 8.0, DefaultSampler: "euler", DefaultScheduler: "simple",
		DefaultFrames: 81, DefaultFPS: 16,
	},
	FamilyWanS2V: {
		Name: FamilyWanS2V, Load: LoadSplit, ClipArity: 1, ClipType: "wan",
		LoraModelOnly: true, Patch: PatchShift, PatchBeforeLora: false,
		Latent:  LatentSpec{Class: "EmptyHunyuanLatentVideo", Temporal: true},
		Sampler: SamplerSingle, Decode: DecodeAudioVideo, Output: OutputVideo,
		DefaultWidth: 832, DefaultHeight: 480, DefaultSteps: 30, DefaultCFG: 3.5,
		DefaultShift: 8.0, DefaultSampler: "euler", DefaultScheduler: "simple",
		DefaultFrames: 81, DefaultFPS: 16,
	},
	FamilyHunyuan: {
		Name: FamilyHunyuan, Load: LoadSplit, ClipArity: 2, ClipType: "hunyuan_video",
		Guidance: true, LoraModelOnly: true,
		Patch: PatchShift, PatchBeforeLora: false,
		Latent:  LatentSpec{Class: "EmptyHunyuanLatentVideo", Temporal: true},
		Sampler: SamplerCustom, Decode: DecodeTiled, Output: OutputVideo,
		DefaultWidth: 848, DefaultHeight: 480, DefaultSteps: 20, DefaultCFG: 1.0,
		DefaultGuidance: 6.0, DefaultShift: 7.0,
		DefaultSampler: "euler", DefaultScheduler: "simple",
		DefaultFrames: 73, DefaultFPS: 24,
	},
	FamilyLTXV: {
		Name: FamilyLTXV, Load: LoadSplit, ClipArity: 1, ClipType: "ltxv",
		LoraModelOnly: true,
		Latent:  LatentSpec{Class: "EmptyLTXVLatentVideo", Temporal: true},
		Sampler: SamplerSingle, Decode: DecodePlain, Output: OutputVideo,
		DefaultWidth: 768, DefaultHeight: 512, DefaultSteps: 30, DefaultCFG: 3.0,
		DefaultSampler: "euler", DefaultScheduler: "normal",
		DefaultFrames: 97, DefaultFPS: 24,
	},
	FamilyMochi: {
		Name: FamilyMochi, Load: LoadSplit, ClipArity: 1, ClipType: "mochi",
		LoraModelOnly: true,
		Latent:  LatentSpec{Class: "EmptyMochiLatentVideo", Temporal: true},
		Sampler: SamplerSingle, Decode: DecodeTiled, Output: OutputVideo,
		DefaultWidth: 848, DefaultHeight: 480, DefaultSteps: 30, DefaultCFG: 4.5,
		DefaultSampler: "euler", DefaultScheduler: "simple",
		DefaultFrames: 25, DefaultFPS: 24,
	},
}

// dispatchRules maps model-identifier keywords to families. Order is the
// declared tie-break: keyword sets overlap (every "wan2.2_i2v" contains
// "wan"), so the first match wins and more specific keywords come first.
var dispatchRules = []struct {
	keyword string
	family  string
}{
	{"s2v", FamilyWanS2V},
	{"i2v", FamilyWanI2V},
	{"wan", FamilyWan},
	{"hunyuan", FamilyHunyuan},
	{"ltxv", FamilyLTXV},
	{"ltx-video", FamilyLTXV},
	{"mochi", FamilyMochi},
	{"flux", FamilyFlux},
	{"hidream", FamilyHiDream},
	{"lumina", FamilyLumina},
	{"sd3", FamilySD3},
	{"inpaint", FamilyInpaint},
	{"upscale", FamilyUpscale},
	{"esrgan", FamilyUpscale},
	{"refiner", FamilySDXLRefiner},
	{"sdxl", FamilySDXL},
	{"xl", FamilySDXL},
}

// DetectFamily matches the model identifier against the ordered keyword
// list, case-insensitive substring, first match wins. Unmatched
// identifiers fall back to the generic default family.
func DetectFamily(model string) string {
	lower := strings.ToLower(model)

	for _, rule := range dispatchRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.family
		}
	}

	return FamilySD
}

// FamilyByName looks up a family by its explicit name.
func FamilyByName(name string) (Family, bool) {
	fam, ok := families[name]

	return fam, ok
}

// FamilyNames lists every registered family.
func FamilyNames() []string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}

	return names
}

// Keywords returns the ordered dispatch keyword list. Static configuration
// data, exposed for display and tooling.
func Keywords() []string {
	keywords := make([]string, len(dispatchRules))
	for i, rule := range dispatchRules {
		keywords[i] = rule.keyword
	}

	return keywords
}
