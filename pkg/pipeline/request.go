// Package pipeline assembles generation workflow graphs. One generic
// assembler is parameterized by a per-family axes table (load kind, encoder
// arity, patch order, latent kind, sampler kind, decode and output kind)
// instead of one hand-written builder per model architecture.
package pipeline

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/genweave/genweave/pkg/graph"
)

// BuildRequest carries every caller-supplied generation parameter. The
// zero value of an optional field means "use the family default".
type BuildRequest struct {
	// Model is the primary weights file; it also drives family
	// auto-detection when Architecture is empty.
	Model        string `json:"model"                  validate:"required"`
	Architecture string `json:"architecture,omitempty"` // explicit family name, skips auto-detection

	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`

	Width  int `json:"width,omitempty"  validate:"omitempty,min=64,max=8192"`
	Height int `json:"height,omitempty" validate:"omitempty,min=64,max=8192"`
	Steps  int `json:"steps,omitempty"  validate:"omitempty,min=1,max=150"`

	Seed      int64   `json:"seed,omitempty"`
	CFG       float64 `json:"cfg,omitempty"        validate:"omitempty,min=0"`
	Denoise   float64 `json:"denoise,omitempty"    validate:"omitempty,gt=0,lte=1"`
	Guidance  float64 `json:"guidance,omitempty"   validate:"omitempty,min=0"`
	Shift     float64 `json:"shift,omitempty"      validate:"omitempty,min=0"`
	BatchSize int     `json:"batch_size,omitempty" validate:"omitempty,min=1"`

	SamplerName string `json:"sampler_name,omitempty"`
	Scheduler   string `json:"scheduler,omitempty"`

	Loras []graph.LoraSpec `json:"loras,omitempty" validate:"dive"`

	// Split-load families: text encoder and VAE files. VAE doubles as the
	// override for combined checkpoints.
	ClipNames []string `json:"clip_names,omitempty" validate:"omitempty,max=4"`
	VAE       string   `json:"vae,omitempty"`
	AudioVAE  string   `json:"audio_vae,omitempty"`

	// Second weights file for two-model families: the low-noise model of a
	// high/low pair, or the refiner of a base/refiner pair.
	SecondaryModel string `json:"secondary_model,omitempty"`

	// Image input for img2img, inpaint, image-to-video, and upscale-only.
	InitImage string `json:"init_image,omitempty"`

	UpscaleModel string `json:"upscale_model,omitempty"`

	// Two-stage hi-res parameters.
	HiresScale   float64 `json:"hires_scale,omitempty"   validate:"omitempty,gt=1"`
	HiresDenoise float64 `json:"hires_denoise,omitempty" validate:"omitempty,gt=0,lte=1"`

	// Video length and playback rate.
	Frames int `json:"frames,omitempty" validate:"omitempty,min=1"`
	FPS    int `json:"fps,omitempty"    validate:"omitempty,min=1"`
}

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request before any graph is built.
func (r *BuildRequest) Validate() error {
	if err := requestValidator.Struct(r); err != nil {
		return fmt.Errorf("invalid build request: %w", err)
	}

	return nil
}

// withDefaults fills unset fields from the family's defaults.
func (r BuildRequest) withDefaults(fam Family) BuildRequest {
	if r.Width == 0 {
		r.Width = fam.DefaultWidth
	}

	if r.Height == 0 {
		r.Height = fam.DefaultHeight
	}

	if r.Steps == 0 {
		r.Steps = fam.DefaultSteps
	}

	if r.CFG == 0 {
		r.CFG = fam.DefaultCFG
	}

	if r.Denoise == 0 {
		r.Denoise = 1.0
	}

	if r.Guidance == 0 {
		r.Guidance = fam.DefaultGuidance
	}

	if r.Shift == 0 {
		r.Shift = fam.DefaultShift
	}

	if r.BatchSize == 0 {
		r.BatchSize = 1
	}

	if r.SamplerName == "" {
		r.SamplerName = fam.DefaultSampler
	}

	if r.Scheduler == "" {
		r.Scheduler = fam.DefaultScheduler
	}

	if r.SecondaryModel == "" {
		r.SecondaryModel = r.Model
	}

	if r.Frames == 0 {
		r.Frames = fam.DefaultFrames
	}

	if r.FPS == 0 {
		r.FPS = fam.DefaultFPS
	}

	if r.HiresScale == 0 {
		r.HiresScale = 1.5
	}

	if r.HiresDenoise == 0 {
		r.HiresDenoise = 0.5
	}

	return r
}
