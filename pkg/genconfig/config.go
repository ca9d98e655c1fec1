// Package genconfig loads and binds generative-model configuration documents.
//
// A model directory carries a genai_config.json describing the model
// topology, graph tensor bindings, execution-provider options and search
// defaults. Binding is strict: a field no binder recognises fails the whole
// load, so a typo can never silently fall back to a default. A partial
// overlay document may be merged over an already-bound configuration; scalar
// fields overwrite, plain lists append and keyed collections merge by key.
package genconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samcharles93/genaiconf/internal/jsontree"
)

// ConfigFileName is the fixed document name inside a model directory.
const ConfigFileName = "genai_config.json"

// NamedString is one ordered key/value pair.
type NamedString struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProviderOptions carries the option set declared for one execution provider.
type ProviderOptions struct {
	Name    string        `json:"name"`
	Options []NamedString `json:"options,omitempty"`
}

// SessionOptions configures one runtime session. Pointer fields distinguish
// "not set" from an explicit zero so the session layer can apply its own
// defaults.
type SessionOptions struct {
	LogID                  *string                 `json:"log_id,omitempty"`
	EnableProfiling        *string                 `json:"enable_profiling,omitempty"`
	EPContextEmbedMode     *string                 `json:"ep_context_embed_mode,omitempty"`
	EPContextFilePath      *string                 `json:"ep_context_file_path,omitempty"`
	CustomOpsLibrary       *string                 `json:"custom_ops_library,omitempty"`
	IntraOpNumThreads      *int                    `json:"intra_op_num_threads,omitempty"`
	InterOpNumThreads      *int                    `json:"inter_op_num_threads,omitempty"`
	LogSeverityLevel       *int                    `json:"log_severity_level,omitempty"`
	EnableCPUMemArena      *bool                   `json:"enable_cpu_mem_arena,omitempty"`
	EnableMemPattern       *bool                   `json:"enable_mem_pattern,omitempty"`
	DisableCPUEPFallback   *bool                   `json:"disable_cpu_ep_fallback,omitempty"`
	DisableQuantQDQ        *bool                   `json:"disable_quant_qdq,omitempty"`
	EnableQuantQDQCleanup  *bool                   `json:"enable_quant_qdq_cleanup,omitempty"`
	EPContextEnable        *bool                   `json:"ep_context_enable,omitempty"`
	UseEnvAllocators       *bool                   `json:"use_env_allocators,omitempty"`
	GraphOptimizationLevel *GraphOptimizationLevel `json:"graph_optimization_level,omitempty"`
	Providers              []string                `json:"providers,omitempty"`
	ProviderOptions        []ProviderOptions       `json:"provider_options,omitempty"`
	ConfigEntries          []NamedString           `json:"config_entries,omitempty"`
}

// EncoderInputs maps logical encoder tensor roles to graph tensor names.
type EncoderInputs struct {
	InputIDs      string `json:"input_ids,omitempty"`
	Embeddings    string `json:"inputs_embeds,omitempty"`
	AttentionMask string `json:"attention_mask,omitempty"`
	PositionIDs   string `json:"position_ids,omitempty"`
	AudioFeatures string `json:"audio_features,omitempty"`
}

// EncoderOutputs maps logical encoder output roles to graph tensor names.
type EncoderOutputs struct {
	HiddenStates           string `json:"encoder_hidden_states,omitempty"`
	EncoderOutputs         string `json:"encoder_outputs,omitempty"`
	CrossPresentKeyNames   string `json:"cross_present_key_names,omitempty"`
	CrossPresentValueNames string `json:"cross_present_value_names,omitempty"`
}

// Encoder describes the optional encoder sub-model.
type Encoder struct {
	Filename          string         `json:"filename,omitempty"`
	HiddenSize        int            `json:"hidden_size,omitempty"`
	NumAttentionHeads int            `json:"num_attention_heads,omitempty"`
	NumKeyValueHeads  int            `json:"num_key_value_heads,omitempty"`
	NumHiddenLayers   int            `json:"num_hidden_layers,omitempty"`
	HeadSize          int            `json:"head_size,omitempty"`
	SessionOptions    SessionOptions `json:"session_options"`
	Inputs            EncoderInputs  `json:"inputs"`
	Outputs           EncoderOutputs `json:"outputs"`
}

// DecoderInputs maps logical decoder tensor roles to graph tensor names.
type DecoderInputs struct {
	InputIDs              string `json:"input_ids,omitempty"`
	Embeddings            string `json:"inputs_embeds,omitempty"`
	AttentionMask         string `json:"attention_mask,omitempty"`
	PositionIDs           string `json:"position_ids,omitempty"`
	PastKeyNames          string `json:"past_key_names,omitempty"`
	PastValueNames        string `json:"past_value_names,omitempty"`
	PastNames             string `json:"past_names,omitempty"`
	CrossPastKeyNames     string `json:"cross_past_key_names,omitempty"`
	CrossPastValueNames   string `json:"cross_past_value_names,omitempty"`
	PastSequenceLength    string `json:"past_sequence_length,omitempty"`
	CurrentSequenceLength string `json:"current_sequence_length,omitempty"`
	TotalSequenceLength   string `json:"total_sequence_length,omitempty"`
	EncoderHiddenStates   string `json:"encoder_hidden_states,omitempty"`
	EncoderAttentionMask  string `json:"encoder_attention_mask,omitempty"`
	RNNPrevStates         string `json:"rnn_states_prev,omitempty"`
	PastKeyValuesLength   string `json:"past_key_values_length,omitempty"`
	CacheIndirection      string `json:"cache_indirection,omitempty"`
}

// DecoderOutputs maps logical decoder output roles to graph tensor names.
type DecoderOutputs struct {
	Logits             string `json:"logits,omitempty"`
	PresentKeyNames    string `json:"present_key_names,omitempty"`
	PresentValueNames  string `json:"present_value_names,omitempty"`
	PresentNames       string `json:"present_names,omitempty"`
	OutputCrossQKNames string `json:"output_cross_qk_names,omitempty"`
	RNNStates          string `json:"rnn_states,omitempty"`
}

// SlidingWindow is the decoder's optional sliding-window policy.
type SlidingWindow struct {
	WindowSize         int    `json:"window_size"`
	PadValue           int    `json:"pad_value"`
	Alignment          string `json:"alignment"`
	SlideKeyValueCache bool   `json:"slide_key_value_cache"`
	SlideInputs        bool   `json:"slide_inputs"`
}

// PipelineModel is one stage of a multi-model decoding pipeline. The ModelID
// is the key the stage was declared under; redeclaring it updates the stage
// in place.
type PipelineModel struct {
	ModelID              string            `json:"model_id"`
	Filename             string            `json:"filename,omitempty"`
	RunOnPrompt          bool              `json:"run_on_prompt"`
	RunOnTokenGen        bool              `json:"run_on_token_gen"`
	ResetSessionIdx      int               `json:"reset_session_idx"`
	SessionOptions       *SessionOptions   `json:"session_options,omitempty"`
	Inputs               []string          `json:"inputs,omitempty"`
	Outputs              []string          `json:"outputs,omitempty"`
	OutputNamesForwarder map[string]string `json:"output_names_forwarder,omitempty"`
}

// Decoder describes the decoder sub-model.
type Decoder struct {
	Filename          string          `json:"filename,omitempty"`
	HiddenSize        int             `json:"hidden_size,omitempty"`
	NumAttentionHeads int             `json:"num_attention_heads,omitempty"`
	NumKeyValueHeads  int             `json:"num_key_value_heads,omitempty"`
	NumHiddenLayers   int             `json:"num_hidden_layers,omitempty"`
	HeadSize          int             `json:"head_size,omitempty"`
	SessionOptions    SessionOptions  `json:"session_options"`
	Inputs            DecoderInputs   `json:"inputs"`
	Outputs           DecoderOutputs  `json:"outputs"`
	Pipeline          []PipelineModel `json:"pipeline,omitempty"`
	SlidingWindow     *SlidingWindow  `json:"sliding_window,omitempty"`
}

// VisionInputs maps logical vision tensor roles to graph tensor names.
type VisionInputs struct {
	PixelValues   string `json:"pixel_values,omitempty"`
	ImageSizes    string `json:"image_sizes,omitempty"`
	AttentionMask string `json:"attention_mask,omitempty"`
}

// VisionOutputs maps logical vision output roles to graph tensor names.
type VisionOutputs struct {
	ImageFeatures string `json:"image_features,omitempty"`
}

// Vision describes the optional vision sub-model.
type Vision struct {
	Filename        string        `json:"filename,omitempty"`
	ConfigFilename  string        `json:"config_filename,omitempty"`
	AdapterFilename string        `json:"adapter_filename,omitempty"`
	Inputs          VisionInputs  `json:"inputs"`
	Outputs         VisionOutputs `json:"outputs"`
}

// SpeechInputs maps logical speech tensor roles to graph tensor names.
type SpeechInputs struct {
	AudioEmbeds         string `json:"audio_embeds,omitempty"`
	AttentionMask       string `json:"attention_mask,omitempty"`
	AudioSizes          string `json:"audio_sizes,omitempty"`
	AudioProjectionMode string `json:"audio_projection_mode,omitempty"`
}

// SpeechOutputs maps logical speech output roles to graph tensor names.
type SpeechOutputs struct {
	AudioFeatures string `json:"audio_features,omitempty"`
}

// Speech describes the optional speech sub-model.
type Speech struct {
	Filename        string        `json:"filename,omitempty"`
	ConfigFilename  string        `json:"config_filename,omitempty"`
	AdapterFilename string        `json:"adapter_filename,omitempty"`
	Inputs          SpeechInputs  `json:"inputs"`
	Outputs         SpeechOutputs `json:"outputs"`
}

// EmbeddingInputs maps logical embedding tensor roles to graph tensor names.
type EmbeddingInputs struct {
	InputIDs      string `json:"input_ids,omitempty"`
	ImageFeatures string `json:"image_features,omitempty"`
	AudioFeatures string `json:"audio_features,omitempty"`
}

// EmbeddingOutputs maps logical embedding output roles to graph tensor names.
type EmbeddingOutputs struct {
	Embeddings string `json:"inputs_embeds,omitempty"`
}

// Embedding describes the optional embedding sub-model.
type Embedding struct {
	Filename string           `json:"filename,omitempty"`
	Inputs   EmbeddingInputs  `json:"inputs"`
	Outputs  EmbeddingOutputs `json:"outputs"`
}

// Model describes the model topology and token vocabulary.
type Model struct {
	Type                string    `json:"type,omitempty"`
	VocabSize           int       `json:"vocab_size,omitempty"`
	ContextLength       int       `json:"context_length,omitempty"`
	PadTokenID          int       `json:"pad_token_id,omitempty"`
	EOSTokenID          []int     `json:"eos_token_id,omitempty"`
	BOSTokenID          int       `json:"bos_token_id,omitempty"`
	DecoderStartTokenID int       `json:"decoder_start_token_id,omitempty"`
	SepTokenID          int       `json:"sep_token_id,omitempty"`
	Encoder             Encoder   `json:"encoder"`
	Decoder             Decoder   `json:"decoder"`
	Vision              Vision    `json:"vision"`
	Speech              Speech    `json:"speech"`
	Embedding           Embedding `json:"embedding"`
}

// Search holds the decoding/search hyperparameters. Fields left out of the
// document keep the engine defaults set by DefaultConfig.
type Search struct {
	DoSample               bool    `json:"do_sample"`
	MinLength              int     `json:"min_length"`
	MaxLength              int     `json:"max_length"`
	BatchSize              int     `json:"batch_size"`
	NumBeams               int     `json:"num_beams"`
	NumReturnSequences     int     `json:"num_return_sequences"`
	TopK                   int     `json:"top_k"`
	TopP                   float32 `json:"top_p"`
	Temperature            float32 `json:"temperature"`
	RepetitionPenalty      float32 `json:"repetition_penalty"`
	LengthPenalty          float32 `json:"length_penalty"`
	DiversityPenalty       float32 `json:"diversity_penalty"`
	NoRepeatNgramSize      int     `json:"no_repeat_ngram_size"`
	EarlyStopping          bool    `json:"early_stopping"`
	RandomSeed             int     `json:"random_seed"`
	PastPresentShareBuffer bool    `json:"past_present_share_buffer"`
}

// Config is the fully bound configuration for one model directory.
type Config struct {
	// Path is the model directory the document was loaded from.
	Path   string `json:"-"`
	Model  Model  `json:"model"`
	Search Search `json:"search"`

	nominalToGraph map[string]string
}

// DefaultConfig returns a Config carrying the engine defaults a document
// binds over: canonical tensor-role names and search hyperparameter
// defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: Model{
			Encoder: Encoder{
				Inputs: EncoderInputs{
					InputIDs:      "input_ids",
					Embeddings:    "inputs_embeds",
					AttentionMask: "attention_mask",
					PositionIDs:   "position_ids",
					AudioFeatures: "audio_features",
				},
				Outputs: EncoderOutputs{
					HiddenStates:   "encoder_hidden_states",
					EncoderOutputs: "encoder_outputs",
				},
			},
			Decoder: Decoder{
				Inputs: DecoderInputs{
					InputIDs:              "input_ids",
					Embeddings:            "inputs_embeds",
					AttentionMask:         "attention_mask",
					PositionIDs:           "position_ids",
					PastKeyNames:          "past_key_values.%d.key",
					PastValueNames:        "past_key_values.%d.value",
					PastSequenceLength:    "past_sequence_length",
					CurrentSequenceLength: "current_sequence_length",
					TotalSequenceLength:   "total_sequence_length",
					EncoderHiddenStates:   "encoder_hidden_states",
					EncoderAttentionMask:  "encoder_attention_mask",
					CacheIndirection:      "cache_indirection",
				},
				Outputs: DecoderOutputs{
					Logits:            "logits",
					PresentKeyNames:   "present.%d.key",
					PresentValueNames: "present.%d.value",
				},
			},
			Vision: Vision{
				Inputs: VisionInputs{
					PixelValues:   "pixel_values",
					ImageSizes:    "image_sizes",
					AttentionMask: "attention_mask",
				},
				Outputs: VisionOutputs{ImageFeatures: "image_features"},
			},
			Speech: Speech{
				Inputs: SpeechInputs{
					AudioEmbeds:   "audio_embeds",
					AttentionMask: "attention_mask",
					AudioSizes:    "audio_sizes",
				},
				Outputs: SpeechOutputs{AudioFeatures: "audio_features"},
			},
			Embedding: Embedding{
				Inputs: EmbeddingInputs{
					InputIDs:      "input_ids",
					ImageFeatures: "image_features",
					AudioFeatures: "audio_features",
				},
				Outputs: EmbeddingOutputs{Embeddings: "inputs_embeds"},
			},
		},
		Search: Search{
			BatchSize:          1,
			NumBeams:           1,
			NumReturnSequences: 1,
			TopK:               50,
			TopP:               1,
			Temperature:        1,
			RepetitionPenalty:  1,
			LengthPenalty:      1,
			EarlyStopping:      true,
			RandomSeed:         -1,
		},
		nominalToGraph: map[string]string{},
	}
}

// Load reads genai_config.json from dir, binds it, merges the optional
// overlay document on top and enforces the cross-field invariants. Any
// failure aborts the load; no partially bound configuration is returned.
func Load(dir string, overlay string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Path = dir

	path := filepath.Join(dir, ConfigFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := bind(cfg, string(raw)); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if overlay != "" {
		if err := bind(cfg, overlay); err != nil {
			return nil, fmt.Errorf("parsing config overlay: %w", err)
		}
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverlay merges a partial document over an already-bound
// configuration. Scalars overwrite, plain lists append and keyed collections
// merge by key.
func (c *Config) ApplyOverlay(doc string) error {
	if err := bind(c, doc); err != nil {
		return fmt.Errorf("parsing config overlay: %w", err)
	}
	return nil
}

func bind(c *Config, doc string) error {
	return jsontree.Walk(doc, rootDocument{root: rootElement{v: c}})
}

// finalize validates and derives the fields that are only knowable once the
// whole document (and any overlay) has been read.
func (c *Config) finalize() error {
	if c.Model.ContextLength == 0 {
		return ErrContextLength
	}
	if c.Search.MaxLength == 0 {
		c.Search.MaxLength = c.Model.ContextLength
	}
	if len(c.Model.EOSTokenID) == 0 {
		c.Model.EOSTokenID = []int{c.Model.PadTokenID}
	}
	backfillProviders(&c.Model.Decoder.SessionOptions)
	backfillProviders(&c.Model.Encoder.SessionOptions)
	return nil
}

// AddMapping associates a nominal tensor name with its graph name. Repeating
// an identical mapping is a no-op; mapping the same nominal name to a
// different graph name is an error.
func (c *Config) AddMapping(nominal, graph string) error {
	if c.nominalToGraph == nil {
		c.nominalToGraph = map[string]string{}
	}
	if existing, ok := c.nominalToGraph[nominal]; ok {
		if existing != graph {
			return fmt.Errorf("%w: %s with graph names %s and %s",
				ErrDuplicateMapping, nominal, graph, existing)
		}
		return nil
	}
	c.nominalToGraph[nominal] = graph
	return nil
}

// GetGraphName resolves a nominal tensor name to its graph name. Unmapped
// names come back unchanged with found=false so callers can use the nominal
// name itself as the fallback.
func (c *Config) GetGraphName(nominal string) (string, bool) {
	if graph, ok := c.nominalToGraph[nominal]; ok {
		return graph, true
	}
	return nominal, false
}
