package genconfig

import (
	"errors"
	"testing"

	"github.com/samcharles93/genaiconf/internal/jsontree"
)

func mustBind(t *testing.T, c *Config, doc string) {
	t.Helper()
	if err := bind(c, doc); err != nil {
		t.Fatalf("bind: %v", err)
	}
}

func TestBindModelAndSearch(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	mustBind(t, cfg, `{
		"model": {
			"type": "llama",
			"vocab_size": 32000,
			"context_length": 4096,
			"pad_token_id": 0,
			"bos_token_id": 1,
			"eos_token_id": 2,
			"decoder": {
				"filename": "model.onnx",
				"hidden_size": 4096,
				"num_attention_heads": 32,
				"num_key_value_heads": 8,
				"num_hidden_layers": 32,
				"head_size": 128,
				"inputs": {"input_ids": "tokens", "attention_mask": "mask"},
				"outputs": {"logits": "scores"}
			}
		},
		"search": {
			"max_length": 256,
			"do_sample": true,
			"top_k": 40,
			"top_p": 0.9,
			"temperature": 0.7
		}
	}`)

	if cfg.Model.Type != "llama" {
		t.Fatalf("type: got %q want %q", cfg.Model.Type, "llama")
	}
	if cfg.Model.ContextLength != 4096 {
		t.Fatalf("context_length: got %d want 4096", cfg.Model.ContextLength)
	}
	if len(cfg.Model.EOSTokenID) != 1 || cfg.Model.EOSTokenID[0] != 2 {
		t.Fatalf("eos_token_id: got %v want [2]", cfg.Model.EOSTokenID)
	}
	if cfg.Model.Decoder.Inputs.InputIDs != "tokens" {
		t.Fatalf("decoder input_ids: got %q want %q", cfg.Model.Decoder.Inputs.InputIDs, "tokens")
	}
	// Fields the document does not mention keep their defaults.
	if cfg.Model.Decoder.Inputs.PositionIDs != "position_ids" {
		t.Fatalf("decoder position_ids default lost: got %q", cfg.Model.Decoder.Inputs.PositionIDs)
	}
	if cfg.Model.Decoder.Outputs.Logits != "scores" {
		t.Fatalf("decoder logits: got %q want %q", cfg.Model.Decoder.Outputs.Logits, "scores")
	}
	if !cfg.Search.DoSample || cfg.Search.TopK != 40 || cfg.Search.MaxLength != 256 {
		t.Fatalf("search: got %+v", cfg.Search)
	}
	if cfg.Search.Temperature != 0.7 {
		t.Fatalf("temperature: got %v want 0.7", cfg.Search.Temperature)
	}
	if cfg.Search.NumBeams != 1 {
		t.Fatalf("num_beams default lost: got %d", cfg.Search.NumBeams)
	}
}

func TestBindRejectsUnknownFieldAtDepth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		doc   string
		field string
	}{
		{`{"frobnicate": 1}`, "frobnicate"},
		{`{"model": {"colour": "red"}}`, "colour"},
		{`{"model": {"decoder": {"inputs": {"inputs_ids": "x"}}}}`, "inputs_ids"},
		{`{"model": {"decoder": {"session_options": {"ep": "cpu"}}}}`, "ep"},
		{`{"search": {"max_len": 10}}`, "max_len"},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		err := bind(cfg, tc.doc)
		var unknown *jsontree.UnknownFieldError
		if !errors.As(err, &unknown) {
			t.Fatalf("doc %s: got %v, want UnknownFieldError", tc.doc, err)
		}
		if unknown.Field != tc.field {
			t.Fatalf("doc %s: got field %q want %q", tc.doc, unknown.Field, tc.field)
		}
	}
}

func TestBindRejectsWrongScalarTypes(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	err := bind(cfg, `{"model": {"context_length": "big"}}`)
	var typeErr *jsontree.TypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("got %v, want TypeError", err)
	}
	if typeErr.Want != "number" || typeErr.Got != "string" {
		t.Fatalf("TypeError: got %+v", typeErr)
	}
}

func TestBindEOSTokenScalarReplacesArrayAppends(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	mustBind(t, cfg, `{"model": {"eos_token_id": [2, 3]}}`)
	if got := cfg.Model.EOSTokenID; len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("array form: got %v want [2 3]", got)
	}

	// The array form appends across passes.
	mustBind(t, cfg, `{"model": {"eos_token_id": [4]}}`)
	if got := cfg.Model.EOSTokenID; len(got) != 3 || got[2] != 4 {
		t.Fatalf("second array pass: got %v want [2 3 4]", got)
	}

	// The scalar form collapses the sequence to a single id.
	mustBind(t, cfg, `{"model": {"eos_token_id": 7}}`)
	if got := cfg.Model.EOSTokenID; len(got) != 1 || got[0] != 7 {
		t.Fatalf("scalar form: got %v want [7]", got)
	}
}

func TestBindSessionOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	mustBind(t, cfg, `{"model": {"decoder": {"session_options": {
		"log_id": "genai",
		"intra_op_num_threads": 4,
		"enable_cpu_mem_arena": false,
		"graph_optimization_level": "ORT_ENABLE_EXTENDED",
		"config_entries": {"session.use_ort_model_bytes_directly": "1"},
		"provider_options": [{"cuda": {"device_id": "0"}}]
	}}}}`)

	so := cfg.Model.Decoder.SessionOptions
	if so.LogID == nil || *so.LogID != "genai" {
		t.Fatalf("log_id: got %v", so.LogID)
	}
	if so.IntraOpNumThreads == nil || *so.IntraOpNumThreads != 4 {
		t.Fatalf("intra_op_num_threads: got %v", so.IntraOpNumThreads)
	}
	if so.EnableCPUMemArena == nil || *so.EnableCPUMemArena {
		t.Fatalf("enable_cpu_mem_arena: got %v, want explicit false", so.EnableCPUMemArena)
	}
	if so.GraphOptimizationLevel == nil || *so.GraphOptimizationLevel != GraphOptimizationEnableExtended {
		t.Fatalf("graph_optimization_level: got %v", so.GraphOptimizationLevel)
	}
	if len(so.ConfigEntries) != 1 || so.ConfigEntries[0].Value != "1" {
		t.Fatalf("config_entries: got %v", so.ConfigEntries)
	}
	if len(so.ProviderOptions) != 1 || so.ProviderOptions[0].Name != "cuda" {
		t.Fatalf("provider_options: got %v", so.ProviderOptions)
	}
	if opts := so.ProviderOptions[0].Options; len(opts) != 1 || opts[0].Name != "device_id" || opts[0].Value != "0" {
		t.Fatalf("cuda options: got %v", opts)
	}
}

func TestBindNormalizesProviderNamesWhenArrayCloses(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	mustBind(t, cfg, `{"model": {"decoder": {"session_options": {
		"provider_options": [{"qnn": {"backend_path": "libQnnHtp.so"}}, {"webgpu": {}}, {"dml": {}}]
	}}}}`)

	got := cfg.Model.Decoder.SessionOptions.ProviderOptions
	want := []string{"QNN", "WebGPU", "DML"}
	if len(got) != len(want) {
		t.Fatalf("got %d provider entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Fatalf("provider %d: got %q want %q", i, got[i].Name, want[i])
		}
	}
	// The QNN entry keeps the options bound under the old spelling.
	if opts := got[0].Options; len(opts) != 1 || opts[0].Name != "backend_path" {
		t.Fatalf("QNN options: got %v", opts)
	}
}

func TestBindPipelineStages(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	mustBind(t, cfg, `{"model": {"decoder": {"pipeline": [{
		"embed": {"filename": "embed.onnx", "run_on_token_gen": false},
		"transformer": {
			"filename": "body.onnx",
			"inputs": ["inputs_embeds"],
			"outputs": ["hidden_states"],
			"output_names_forwarder": {"hidden_states": "inputs_embeds"},
			"session_options": {"log_id": "body"}
		}
	}]}}}`)

	pipe := cfg.Model.Decoder.Pipeline
	if len(pipe) != 2 {
		t.Fatalf("got %d stages, want 2", len(pipe))
	}
	embed := pipe[0]
	if embed.ModelID != "embed" || embed.Filename != "embed.onnx" {
		t.Fatalf("stage 0: got %+v", embed)
	}
	// run_on_prompt and reset_session_idx keep their stage defaults; the
	// document switched run_on_token_gen off.
	if !embed.RunOnPrompt || embed.RunOnTokenGen || embed.ResetSessionIdx != -1 {
		t.Fatalf("stage 0 flags: got %+v", embed)
	}
	body := pipe[1]
	if body.OutputNamesForwarder["hidden_states"] != "inputs_embeds" {
		t.Fatalf("forwarder: got %v", body.OutputNamesForwarder)
	}
	if body.SessionOptions == nil || body.SessionOptions.LogID == nil || *body.SessionOptions.LogID != "body" {
		t.Fatalf("stage session options: got %+v", body.SessionOptions)
	}
}

func TestBindPipelineRedeclarationUpdatesInPlace(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	mustBind(t, cfg, `{"model": {"decoder": {"pipeline": [{
		"embed": {"filename": "embed.onnx", "session_options": {"log_id": "old", "intra_op_num_threads": 2}}
	}]}}}`)
	mustBind(t, cfg, `{"model": {"decoder": {"pipeline": [{
		"embed": {"run_on_prompt": false, "session_options": {"log_id": "new"}}
	}]}}}`)

	pipe := cfg.Model.Decoder.Pipeline
	if len(pipe) != 1 {
		t.Fatalf("got %d stages, want 1 merged stage", len(pipe))
	}
	embed := pipe[0]
	if embed.Filename != "embed.onnx" {
		t.Fatalf("filename lost on merge: got %q", embed.Filename)
	}
	if embed.RunOnPrompt {
		t.Fatalf("run_on_prompt not overwritten")
	}
	// Redeclared session_options starts over rather than merging.
	so := embed.SessionOptions
	if so == nil || so.LogID == nil || *so.LogID != "new" {
		t.Fatalf("session log_id: got %+v", so)
	}
	if so.IntraOpNumThreads != nil {
		t.Fatalf("stale intra_op_num_threads survived session_options reset: %v", *so.IntraOpNumThreads)
	}
}

func TestBindSlidingWindowResetsOnRedeclaration(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	mustBind(t, cfg, `{"model": {"decoder": {"sliding_window": {
		"window_size": 1024, "pad_value": 5, "alignment": "left", "slide_inputs": false
	}}}}`)

	sw := cfg.Model.Decoder.SlidingWindow
	if sw == nil || sw.WindowSize != 1024 || sw.Alignment != "left" || sw.SlideInputs {
		t.Fatalf("first declaration: got %+v", sw)
	}
	if !sw.SlideKeyValueCache {
		t.Fatalf("slide_key_value_cache default lost: got %+v", sw)
	}

	mustBind(t, cfg, `{"model": {"decoder": {"sliding_window": {"window_size": 2048}}}}`)
	sw = cfg.Model.Decoder.SlidingWindow
	if sw.WindowSize != 2048 {
		t.Fatalf("window_size: got %d want 2048", sw.WindowSize)
	}
	if sw.Alignment != "right" || !sw.SlideInputs {
		t.Fatalf("redeclaration did not reset to defaults: got %+v", sw)
	}
}

func TestBindMultiModalSections(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	mustBind(t, cfg, `{"model": {
		"context_length": 131072,
		"vision": {
			"filename": "vision.onnx",
			"config_filename": "processor_config.json",
			"adapter_filename": "vision.adapter",
			"inputs": {"pixel_values": "pixels"},
			"outputs": {"image_features": "features"}
		},
		"speech": {
			"filename": "speech.onnx",
			"inputs": {"audio_embeds": "audio", "audio_projection_mode": "speech"}
		},
		"embedding": {
			"filename": "embedding.onnx",
			"inputs": {"image_features": "features"},
			"outputs": {"inputs_embeds": "embeds"}
		},
		"encoder": {
			"filename": "encoder.onnx",
			"inputs": {"audio_features": "mel"},
			"outputs": {"encoder_hidden_states": "hidden"}
		}
	}}`)

	m := cfg.Model
	if m.Vision.Inputs.PixelValues != "pixels" || m.Vision.Outputs.ImageFeatures != "features" {
		t.Fatalf("vision: got %+v", m.Vision)
	}
	if m.Vision.AdapterFilename != "vision.adapter" {
		t.Fatalf("vision adapter: got %q", m.Vision.AdapterFilename)
	}
	if m.Speech.Inputs.AudioProjectionMode != "speech" {
		t.Fatalf("speech: got %+v", m.Speech.Inputs)
	}
	if m.Embedding.Outputs.Embeddings != "embeds" {
		t.Fatalf("embedding: got %+v", m.Embedding.Outputs)
	}
	if m.Encoder.Outputs.HiddenStates != "hidden" {
		t.Fatalf("encoder: got %+v", m.Encoder.Outputs)
	}
}
