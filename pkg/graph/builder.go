package graph

import "strconv"

// LoraSpec names one LoRA file and its application strengths. Order in a
// list is significant: specs chain sequentially, each consuming the output
// of the previous application.
type LoraSpec struct {
	Name          string  `json:"name"           validate:"required"`
	ModelStrength float64 `json:"model_strength"`
	ClipStrength  float64 `json:"clip_strength"`
}

// Node class types used by the LoRA chain helper.
const (
	ClassLoraLoader          = "LoraLoader"
	ClassLoraLoaderModelOnly = "LoraLoaderModelOnly"
)

// Slots tracks the current definition of each named resource while a
// pipeline is assembled. Slots are builder-internal and never persisted;
// they start undefined on every build.
type Slots struct {
	Model    *PortRef
	Clip     *PortRef
	VAE      *PortRef
	Positive *PortRef
	Negative *PortRef
	Latent   *PortRef
	Sampler  *PortRef
	Image    *PortRef
}

// Builder accumulates a graph under construction. Ids are allocated
// sequentially starting at "1". A fresh Builder (or a Reset one) observes
// no state from prior builds.
type Builder struct {
	graph  Graph
	nextID int
	Slots  Slots
}

// NewBuilder returns an empty builder ready for one build.
func NewBuilder() *Builder {
	b := &Builder{}
	b.Reset()

	return b
}

// Reset clears the graph, the id counter, and every slot. Callers reusing a
// builder across independent builds must call it between them.
func (b *Builder) Reset() {
	b.graph = make(Graph)
	b.nextID = 1
	b.Slots = Slots{}
}

// AddNode allocates the next id, stores the node, and returns the id.
func (b *Builder) AddNode(classType string, inputs map[string]InputValue) string {
	id := strconv.Itoa(b.nextID)
	b.nextID++

	if inputs == nil {
		inputs = make(map[string]InputValue)
	}

	b.graph[id] = &Node{ID: id, ClassType: classType, Inputs: inputs}

	return id
}

// Output is shorthand for a reference to one output of a node added earlier.
func (b *Builder) Output(nodeID string, output int) *PortRef {
	return &PortRef{NodeID: nodeID, Output: output}
}

// Graph returns the accumulated graph.
func (b *Builder) Graph() Graph {
	return b.graph
}

// ChainLoras applies the specs in order, each application consuming the
// current model (and clip) reference and rebinding it to the new node's
// output. The chain is strictly linear; an empty list is the identity.
// Pass a nil clip for families whose text encoders are independent of the
// diffusion weights (model-only application).
func (b *Builder) ChainLoras(loras []LoraSpec, model, clip *PortRef) (*PortRef, *PortRef) {
	for _, lora := range loras {
		if clip == nil {
			id := b.AddNode(ClassLoraLoaderModelOnly, map[string]InputValue{
				"lora_name":      Lit(lora.Name),
				"strength_model": Lit(lora.ModelStrength),
				"model":          RefTo(*model),
			})
			model = b.Output(id, 0)

			continue
		}

		id := b.AddNode(ClassLoraLoader, map[string]InputValue{
			"lora_name":      Lit(lora.Name),
			"strength_model": Lit(lora.ModelStrength),
			"strength_clip":  Lit(lora.ClipStrength),
			"model":          RefTo(*model),
			"clip":           RefTo(*clip),
		})
		model = b.Output(id, 0)
		clip = b.Output(id, 1)
	}

	return model, clip
}
