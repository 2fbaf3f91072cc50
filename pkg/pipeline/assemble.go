package pipeline

import (
	"errors"
	"fmt"

	"github.com/genweave/genweave/pkg/graph"
)

// Engine node class types the assembler emits.
const (
	classCheckpointLoader    = "CheckpointLoaderSimple"
	classUNETLoader          = "UNETLoader"
	classCLIPLoader          = "CLIPLoader"
	classDualCLIPLoader      = "DualCLIPLoader"
	classTripleCLIPLoader    = "TripleCLIPLoader"
	classQuadCLIPLoader      = "QuadrupleCLIPLoader"
	classVAELoader           = "VAELoader"
	classTextEncode          = "CLIPTextEncode"
	classZeroOut             = "ConditioningZeroOut"
	classFluxGuidance        = "FluxGuidance"
	classModelSamplingSD3    = "ModelSamplingSD3"
	classModelSamplingFlux   = "ModelSamplingFlux"
	classLoadImage           = "LoadImage"
	classImageScale          = "ImageScale"
	classVAEEncode           = "VAEEncode"
	classVAEEncodeInpaint    = "VAEEncodeForInpaint"
	classImageToVideo        = "WanImageToVideo"
	classKSampler            = "KSampler"
	classKSamplerAdvanced    = "KSamplerAdvanced"
	classLatentUpscale       = "LatentUpscale"
	classRandomNoise         = "RandomNoise"
	classKSamplerSelect      = "KSamplerSelect"
	classBasicScheduler      = "BasicScheduler"
	classBasicGuider         = "BasicGuider"
	classSamplerCustom       = "SamplerCustomAdvanced"
	classVAEDecode           = "VAEDecode"
	classVAEDecodeTiled      = "VAEDecodeTiled"
	classVAEDecodeAudio      = "VAEDecodeAudio"
	classSaveImage           = "SaveImage"
	classCreateVideo         = "CreateVideo"
	classSaveVideo           = "SaveVideo"
	classUpscaleModelLoader  = "UpscaleModelLoader"
	classImageUpscaleWithMdl = "ImageUpscaleWithModel"
)

const filenamePrefix = "genweave"

// Sentinel build errors.
var (
	ErrUnknownArchitecture = errors.New("unknown architecture")
	ErrInitImageRequired   = errors.New("this architecture requires an init image")
	ErrUpscaleModelMissing = errors.New("upscale-only builds require an upscale model")
)

// Build validates the request, resolves the architecture family, and
// assembles a fresh graph. Each call uses its own builder, so no state
// leaks between builds.
func Build(req BuildRequest) (graph.Graph, error) {
	b := graph.NewBuilder()
	if err := Assemble(b, req); err != nil {
		return nil, err
	}

	return b.Graph(), nil
}

// Assemble builds into an existing builder. Callers reusing one builder
// across independent builds must Reset it first.
func Assemble(b *graph.Builder, req BuildRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	name := req.Architecture
	if name == "" {
		name = DetectFamily(req.Model)
	}

	fam, ok := FamilyByName(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownArchitecture, name)
	}

	req = req.withDefaults(fam)

	return assembleFamily(b, fam, req)
}

func assembleFamily(b *graph.Builder, fam Family, req BuildRequest) error {
	if fam.UpscaleOnly {
		return assembleUpscaleOnly(b, req)
	}

	if fam.Inpaint && req.InitImage == "" {
		return fmt.Errorf("%w: %s", ErrInitImageRequired, fam.Name)
	}

	modelLow, err := loadBase(b, fam, req)
	if err != nil {
		return err
	}

	// Patch and LoRA order is architecture-mandated: patching before the
	// chain makes the LoRA operate in the reparameterized space.
	if fam.PatchBeforeLora {
		applyPatch(b, fam, req)

		if modelLow != nil {
			modelLow = patchModel(b, fam, req, modelLow)
		}
	}

	chainClip := b.Slots.Clip
	if fam.LoraModelOnly {
		chainClip = nil
	}

	model, clip := b.ChainLoras(req.Loras, b.Slots.Model, chainClip)
	b.Slots.Model = model

	if !fam.LoraModelOnly {
		b.Slots.Clip = clip
	}

	if modelLow != nil {
		modelLow, _ = b.ChainLoras(req.Loras, modelLow, nil)
	}

	if !fam.PatchBeforeLora {
		applyPatch(b, fam, req)

		if modelLow != nil {
			modelLow = patchModel(b, fam, req, modelLow)
		}
	}

	encodeConditioning(b, fam, req)
	initLatent(b, fam, req)
	applyBridge(b, fam, req)

	samples, err := sample(b, fam, req, modelLow)
	if err != nil {
		return err
	}

	images, audio := decode(b, fam, req, samples)

	emitOutput(b, fam, req, images, audio)

	return nil
}

// loadBase loads the family's weights and binds the model/clip/vae slots.
// For two-model families it returns the secondary diffusion model.
func loadBase(b *graph.Builder, fam Family, req BuildRequest) (*graph.PortRef, error) {
	var modelLow *graph.PortRef

	switch fam.Load {
	case LoadCheckpoint:
		id := b.AddNode(classCheckpointLoader, map[string]graph.InputValue{
			"ckpt_name": graph.Lit(req.Model),
		})
		b.Slots.Model = b.Output(id, 0)
		b.Slots.Clip = b.Output(id, 1)
		b.Slots.VAE = b.Output(id, 2)

	case LoadSplit:
		id := b.AddNode(classUNETLoader, map[string]graph.InputValue{
			"unet_name":    graph.Lit(req.Model),
			"weight_dtype": graph.Lit("default"),
		})
		b.Slots.Model = b.Output(id, 0)

		if fam.Sampler == SamplerDualModel {
			lowID := b.AddNode(classUNETLoader, map[string]graph.InputValue{
				"unet_name":    graph.Lit(req.SecondaryModel),
				"weight_dtype": graph.Lit("default"),
			})
			modelLow = b.Output(lowID, 0)
		}

		clipID := loadTextEncoders(b, fam, req)
		b.Slots.Clip = b.Output(clipID, 0)

		vaeID := b.AddNode(classVAELoader, map[string]graph.InputValue{
			"vae_name": graph.Lit(vaeName(fam, req)),
		})
		b.Slots.VAE = b.Output(vaeID, 0)

		return modelLow, nil
	}

	// Optional override for combined checkpoints.
	if req.VAE != "" {
		id := b.AddNode(classVAELoader, map[string]graph.InputValue{
			"vae_name": graph.Lit(req.VAE),
		})
		b.Slots.VAE = b.Output(id, 0)
	}

	return modelLow, nil
}

func loadTextEncoders(b *graph.Builder, fam Family, req BuildRequest) string {
	inputs := map[string]graph.InputValue{
		"type": graph.Lit(fam.ClipType),
	}

	switch fam.ClipArity {
	case 2:
		inputs["clip_name1"] = graph.Lit(clipName(fam, req, 0))
		inputs["clip_name2"] = graph.Lit(clipName(fam, req, 1))

		return b.AddNode(classDualCLIPLoader, inputs)
	case 3:
		delete(inputs, "type")
		inputs["clip_name1"] = graph.Lit(clipName(fam, req, 0))
		inputs["clip_name2"] = graph.Lit(clipName(fam, req, 1))
		inputs["clip_name3"] = graph.Lit(clipName(fam, req, 2))

		return b.AddNode(classTripleCLIPLoader, inputs)
	case 4:
		delete(inputs, "type")
		inputs["clip_name1"] = graph.Lit(clipName(fam, req, 0))
		inputs["clip_name2"] = graph.Lit(clipName(fam, req, 1))
		inputs["clip_name3"] = graph.Lit(clipName(fam, req, 2))
		inputs["clip_name4"] = graph.Lit(clipName(fam, req, 3))

		return b.AddNode(classQuadCLIPLoader, inputs)
	default:
		inputs["clip_name"] = graph.Lit(clipName(fam, req, 0))

		return b.AddNode(classCLIPLoader, inputs)
	}
}

func clipName(fam Family, req BuildRequest, index int) string {
	if index < len(req.ClipNames) {
		return req.ClipNames[index]
	}

	return fmt.Sprintf("%s_text_encoder_%d.safetensors", fam.ClipType, index+1)
}

func vaeName(fam Family, req BuildRequest) string {
	if req.VAE != "" {
		return req.VAE
	}

	return fam.Name + "_vae.safetensors"
}

// applyPatch rebinds the model slot through the family's
// reparameterization node, if any.
func applyPatch(b *graph.Builder, fam Family, req BuildRequest) {
	if fam.Patch == PatchNone {
		return
	}

	b.Slots.Model = patchModel(b, fam, req, b.Slots.Model)
}

func patchModel(b *graph.Builder, fam Family, req BuildRequest, model *graph.PortRef) *graph.PortRef {
	switch fam.Patch {
	case PatchShift:
		id := b.AddNode(classModelSamplingSD3, map[string]graph.InputValue{
			"model": graph.RefTo(*model),
			"shift": graph.Lit(req.Shift),
		})

		return b.Output(id, 0)
	case PatchFlux:
		id := b.AddNode(classModelSamplingFlux, map[string]graph.InputValue{
			"model":      graph.RefTo(*model),
			"max_shift":  graph.Lit(1.15),
			"base_shift": graph.Lit(0.5),
			"width":      graph.Lit(req.Width),
			"height":     graph.Lit(req.Height),
		})

		return b.Output(id, 0)
	default:
		return model
	}
}

// encodeConditioning binds the positive and negative slots. Guidance-free
// families either synthesize the negative by zeroing the positive or, when
// the sampler takes no negative at all, skip it.
func encodeConditioning(b *graph.Builder, fam Family, req BuildRequest) {
	positive := encodeText(b, req.Prompt)
	b.Slots.Positive = positive

	switch {
	case fam.Sampler == SamplerCustom:
		// Composed guiders consume only the positive branch.
	case fam.ZeroNegative:
		id := b.AddNode(classZeroOut, map[string]graph.InputValue{
			"conditioning": graph.RefTo(*positive),
		})
		b.Slots.Negative = b.Output(id, 0)
	default:
		b.Slots.Negative = encodeText(b, req.NegativePrompt)
	}

	if fam.Guidance {
		id := b.AddNode(classFluxGuidance, map[string]graph.InputValue{
			"conditioning": graph.RefTo(*b.Slots.Positive),
			"guidance":     graph.Lit(req.Guidance),
		})
		b.Slots.Positive = b.Output(id, 0)
	}
}

func encodeText(b *graph.Builder, text string) *graph.PortRef {
	id := b.AddNode(classTextEncode, map[string]graph.InputValue{
		"text": graph.Lit(text),
		"clip": graph.RefTo(*b.Slots.Clip),
	})

	return b.Output(id, 0)
}

// initLatent binds the latent slot: an empty latent with the family's
// implicit channel layout, or an encode of the resized init image.
func initLatent(b *graph.Builder, fam Family, req BuildRequest) {
	if req.InitImage != "" {
		loadID := b.AddNode(classLoadImage, map[string]graph.InputValue{
			"image": graph.Lit(req.InitImage),
		})

		scaleID := b.AddNode(classImageScale, map[string]graph.InputValue{
			"image":          graph.Ref(loadID, 0),
			"upscale_method": graph.Lit("lanczos"),
			"width":          graph.Lit(req.Width),
			"height":         graph.Lit(req.Height),
			"crop":           graph.Lit("disabled"),
		})
		b.Slots.Image = b.Output(scaleID, 0)

		if fam.Bridge != BridgeNone {
			// The conditioning bridge produces the latent itself.
			return
		}

		if fam.Inpaint {
			id := b.AddNode(classVAEEncodeInpaint, map[string]graph.InputValue{
				"pixels":       graph.RefTo(*b.Slots.Image),
				"vae":          graph.RefTo(*b.Slots.VAE),
				"mask":         graph.Ref(loadID, 1),
				"grow_mask_by": graph.Lit(6),
			})
			b.Slots.Latent = b.Output(id, 0)

			return
		}

		id := b.AddNode(classVAEEncode, map[string]graph.InputValue{
			"pixels": graph.RefTo(*b.Slots.Image),
			"vae":    graph.RefTo(*b.Slots.VAE),
		})
		b.Slots.Latent = b.Output(id, 0)

		return
	}

	inputs := map[string]graph.InputValue{
		"width":      graph.Lit(req.Width),
		"height":     graph.Lit(req.Height),
		"batch_size": graph.Lit(req.BatchSize),
	}

	if fam.Latent.Temporal {
		inputs["length"] = graph.Lit(req.Frames)
	}

	id := b.AddNode(fam.Latent.Class, inputs)
	b.Slots.Latent = b.Output(id, 0)
}

// applyBridge threads positive, negative, and latent through the
// image-to-video conditioning bridge when an init image is present.
func applyBridge(b *graph.Builder, fam Family, req BuildRequest) {
	if fam.Bridge != BridgeImageVideo || b.Slots.Image == nil {
		return
	}

	id := b.AddNode(classImageToVideo, map[string]graph.InputValue{
		"positive":    graph.RefTo(*b.Slots.Positive),
		"negative":    graph.RefTo(*b.Slots.Negative),
		"vae":         graph.RefTo(*b.Slots.VAE),
		"width":       graph.Lit(req.Width),
		"height":      graph.Lit(req.Height),
		"length":      graph.Lit(req.Frames),
		"batch_size":  graph.Lit(req.BatchSize),
		"start_image": graph.RefTo(*b.Slots.Image),
	})
	b.Slots.Positive = b.Output(id, 0)
	b.Slots.Negative = b.Output(id, 1)
	b.Slots.Latent = b.Output(id, 2)
}

func sample(b *graph.Builder, fam Family, req BuildRequest, modelLow *graph.PortRef) (*graph.PortRef, error) {
	switch fam.Sampler {
	case SamplerSingle:
		return addKSampler(b, req, b.Slots.Model, b.Slots.Positive, b.Slots.Negative, b.Slots.Latent, req.Denoise), nil

	case SamplerDualModel:
		if modelLow == nil {
			return nil, fmt.Errorf("%w: dual-model family %q has no secondary model", ErrUnknownArchitecture, fam.Name)
		}

		switchStep := int(float64(req.Steps) * fam.SwitchRatio)

		first := addKSamplerAdvanced(b, req, advancedPass{
			model: b.Slots.Model, positive: b.Slots.Positive, negative: b.Slots.Negative,
			latent: b.Slots.Latent, addNoise: true, startStep: 0, endStep: switchStep, leftoverNoise: true,
		})

		second := addKSamplerAdvanced(b, req, advancedPass{
			model: modelLow, positive: b.Slots.Positive, negative: b.Slots.Negative,
			latent: first, addNoise: false, startStep: switchStep, endStep: 10000, leftoverNoise: false,
		})

		return second, nil

	case SamplerRefinerPair:
		return sampleRefinerPair(b, fam, req), nil

	case SamplerTwoStage:
		first := addKSampler(b, req, b.Slots.Model, b.Slots.Positive, b.Slots.Negative, b.Slots.Latent, req.Denoise)

		upID := b.AddNode(classLatentUpscale, map[string]graph.InputValue{
			"samples":        graph.RefTo(*first),
			"upscale_method": graph.Lit("nearest-exact"),
			"width":          graph.Lit(int(float64(req.Width) * req.HiresScale)),
			"height":         graph.Lit(int(float64(req.Height) * req.HiresScale)),
			"crop":           graph.Lit("disabled"),
		})

		return addKSampler(b, req, b.Slots.Model, b.Slots.Positive, b.Slots.Negative, b.Output(upID, 0), req.HiresDenoise), nil

	case SamplerCustom:
		noiseID := b.AddNode(classRandomNoise, map[string]graph.InputValue{
			"noise_seed": graph.Lit(req.Seed),
		})
		guiderID := b.AddNode(classBasicGuider, map[string]graph.InputValue{
			"model":        graph.RefTo(*b.Slots.Model),
			"conditioning": graph.RefTo(*b.Slots.Positive),
		})
		selectID := b.AddNode(classKSamplerSelect, map[string]graph.InputValue{
			"sampler_name": graph.Lit(req.SamplerName),
		})
		b.Slots.Sampler = b.Output(selectID, 0)

		sigmasID := b.AddNode(classBasicScheduler, map[string]graph.InputValue{
			"model":     graph.RefTo(*b.Slots.Model),
			"scheduler": graph.Lit(req.Scheduler),
			"steps":     graph.Lit(req.Steps),
			"denoise":   graph.Lit(req.Denoise),
		})

		id := b.AddNode(classSamplerCustom, map[string]graph.InputValue{
			"noise":        graph.Ref(noiseID, 0),
			"guider":       graph.Ref(guiderID, 0),
			"sampler":      graph.RefTo(*b.Slots.Sampler),
			"sigmas":       graph.Ref(sigmasID, 0),
			"latent_image": graph.RefTo(*b.Slots.Latent),
		})

		return b.Output(id, 0), nil

	default:
		return nil, fmt.Errorf("%w: family %q has no sampler", ErrUnknownArchitecture, fam.Name)
	}
}

func sampleRefinerPair(b *graph.Builder, fam Family, req BuildRequest) *graph.PortRef {
	refinerID := b.AddNode(classCheckpointLoader, map[string]graph.InputValue{
		"ckpt_name": graph.Lit(req.SecondaryModel),
	})
	refinerModel := b.Output(refinerID, 0)
	refinerClip := b.Output(refinerID, 1)

	// The refiner consumes conditioning from its own text encoder.
	refinerPos := b.AddNode(classTextEncode, map[string]graph.InputValue{
		"text": graph.Lit(req.Prompt),
		"clip": graph.RefTo(*refinerClip),
	})
	refinerNeg := b.AddNode(classTextEncode, map[string]graph.InputValue{
		"text": graph.Lit(req.NegativePrompt),
		"clip": graph.RefTo(*refinerClip),
	})

	switchStep := int(float64(req.Steps) * fam.SwitchRatio)

	base := addKSamplerAdvanced(b, req, advancedPass{
		model: b.Slots.Model, positive: b.Slots.Positive, negative: b.Slots.Negative,
		latent: b.Slots.Latent, addNoise: true, startStep: 0, endStep: switchStep, leftoverNoise: true,
	})

	return addKSamplerAdvanced(b, req, advancedPass{
		model: refinerModel, positive: b.Output(refinerPos, 0), negative: b.Output(refinerNeg, 0),
		latent: base, addNoise: false, startStep: switchStep, endStep: 10000, leftoverNoise: false,
	})
}

func addKSampler(b *graph.Builder, req BuildRequest, model, positive, negative, latent *graph.PortRef, denoise float64) *graph.PortRef {
	id := b.AddNode(classKSampler, map[string]graph.InputValue{
		"model":        graph.RefTo(*model),
		"seed":         graph.Lit(req.Seed),
		"steps":        graph.Lit(req.Steps),
		"cfg":          graph.Lit(req.CFG),
		"sampler_name": graph.Lit(req.SamplerName),
		"scheduler":    graph.Lit(req.Scheduler),
		"positive":     graph.RefTo(*positive),
		"negative":     graph.RefTo(*negative),
		"latent_image": graph.RefTo(*latent),
		"denoise":      graph.Lit(denoise),
	})

	return b.Output(id, 0)
}

type advancedPass struct {
	model, positive, negative, latent *graph.PortRef
	addNoise                          bool
	startStep, endStep                int
	leftoverNoise                     bool
}

func addKSamplerAdvanced(b *graph.Builder, req BuildRequest, pass advancedPass) *graph.PortRef {
	id := b.AddNode(classKSamplerAdvanced, map[string]graph.InputValue{
		"model":                      graph.RefTo(*pass.model),
		"add_noise":                  graph.Lit(enableFlag(pass.addNoise)),
		"noise_seed":                 graph.Lit(req.Seed),
		"steps":                      graph.Lit(req.Steps),
		"cfg":                        graph.Lit(req.CFG),
		"sampler_name":               graph.Lit(req.SamplerName),
		"scheduler":                  graph.Lit(req.Scheduler),
		"positive":                   graph.RefTo(*pass.positive),
		"negative":                   graph.RefTo(*pass.negative),
		"latent_image":               graph.RefTo(*pass.latent),
		"start_at_step":              graph.Lit(pass.startStep),
		"end_at_step":                graph.Lit(pass.endStep),
		"return_with_leftover_noise": graph.Lit(enableFlag(pass.leftoverNoise)),
	})

	return b.Output(id, 0)
}

func enableFlag(on bool) string {
	if on {
		return "enable"
	}

	return "disable"
}

// decode converts the sampled latent to pixels, optionally tiled for large
// spatial/temporal extents, with a parallel audio decode for audio+video
// families.
func decode(b *graph.Builder, fam Family, req BuildRequest, samples *graph.PortRef) (*graph.PortRef, *graph.PortRef) {
	var images *graph.PortRef

	switch fam.Decode {
	case DecodeTiled:
		id := b.AddNode(classVAEDecodeTiled, map[string]graph.InputValue{
			"samples":   graph.RefTo(*samples),
			"vae":       graph.RefTo(*b.Slots.VAE),
			"tile_size": graph.Lit(256),
			"overlap":   graph.Lit(64),
		})
		images = b.Output(id, 0)
	default:
		id := b.AddNode(classVAEDecode, map[string]graph.InputValue{
			"samples": graph.RefTo(*samples),
			"vae":     graph.RefTo(*b.Slots.VAE),
		})
		images = b.Output(id, 0)
	}

	if fam.Decode != DecodeAudioVideo {
		return images, nil
	}

	audioVAE := req.AudioVAE
	if audioVAE == "" {
		audioVAE = fam.Name + "_audio_vae.safetensors"
	}

	vaeID := b.AddNode(classVAELoader, map[string]graph.InputValue{
		"vae_name": graph.Lit(audioVAE),
	})
	audioID := b.AddNode(classVAEDecodeAudio, map[string]graph.InputValue{
		"samples": graph.RefTo(*samples),
		"vae":     graph.Ref(vaeID, 0),
	})

	return images, b.Output(audioID, 0)
}

func emitOutput(b *graph.Builder, fam Family, req BuildRequest, images, audio *graph.PortRef) {
	if fam.Output == OutputImage {
		b.AddNode(classSaveImage, map[string]graph.InputValue{
			"images":          graph.RefTo(*images),
			"filename_prefix": graph.Lit(filenamePrefix),
		})

		return
	}

	videoInputs := map[string]graph.InputValue{
		"images": graph.RefTo(*images),
		"fps":    graph.Lit(req.FPS),
	}
	if audio != nil {
		videoInputs["audio"] = graph.RefTo(*audio)
	}

	videoID := b.AddNode(classCreateVideo, videoInputs)

	b.AddNode(classSaveVideo, map[string]graph.InputValue{
		"video":           graph.Ref(videoID, 0),
		"filename_prefix": graph.Lit(filenamePrefix),
		"format":          graph.Lit("mp4"),
		"codec":           graph.Lit("h264"),
	})
}

func assembleUpscaleOnly(b *graph.Builder, req BuildRequest) error {
	if req.InitImage == "" {
		return fmt.Errorf("%w: %s", ErrInitImageRequired, FamilyUpscale)
	}

	if req.UpscaleModel == "" {
		return ErrUpscaleModelMissing
	}

	loadID := b.AddNode(classLoadImage, map[string]graph.InputValue{
		"image": graph.Lit(req.InitImage),
	})

	modelID := b.AddNode(classUpscaleModelLoader, map[string]graph.InputValue{
		"model_name": graph.Lit(req.UpscaleModel),
	})

	upID := b.AddNode(classImageUpscaleWithMdl, map[string]graph.InputValue{
		"upscale_model": graph.Ref(modelID, 0),
		"image":         graph.Ref(loadID, 0),
	})
	b.Slots.Image = b.Output(upID, 0)

	b.AddNode(classSaveImage, map[string]graph.InputValue{
		"images":          graph.RefTo(*b.Slots.Image),
		"filename_prefix": graph.Lit(filenamePrefix),
	})

	return nil
}
