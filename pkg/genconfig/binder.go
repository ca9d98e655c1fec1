package genconfig

import (
	"github.com/samcharles93/genaiconf/internal/jsontree"
)

// The binder tree mirrors the document schema one element per node. Each
// element is an exhaustive switch over the field names its node accepts;
// the default arm rejects, so the schema is enumerated exactly once, here.
// Elements hold pointers into the live Config and look up keyed records
// fresh on every field arrival, which keeps a second (overlay) pass safe
// after backing slices have grown.

func setString(dst *string, v jsontree.Value) error {
	s, err := v.Str()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

func setInt(dst *int, v jsontree.Value) error {
	n, err := v.Int()
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v jsontree.Value) error {
	b, err := v.Bool()
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setFloat32(dst *float32, v jsontree.Value) error {
	f, err := v.Float32()
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func setStringPtr(dst **string, v jsontree.Value) error {
	s, err := v.Str()
	if err != nil {
		return err
	}
	*dst = &s
	return nil
}

func setIntPtr(dst **int, v jsontree.Value) error {
	n, err := v.Int()
	if err != nil {
		return err
	}
	*dst = &n
	return nil
}

func setBoolPtr(dst **bool, v jsontree.Value) error {
	b, err := v.Bool()
	if err != nil {
		return err
	}
	*dst = &b
	return nil
}

// namedStringsElement appends the fields of an object of string values to an
// ordered pair list. The keys are caller-chosen, so every name is accepted.
type namedStringsElement struct {
	jsontree.Reject
	v *[]NamedString
}

func (e namedStringsElement) Scalar(name string, val jsontree.Value) error {
	s, err := val.Str()
	if err != nil {
		return err
	}
	*e.v = append(*e.v, NamedString{Name: name, Value: s})
	return nil
}

// stringMapElement binds an object of string values into a map, overwriting
// on a repeated key.
type stringMapElement struct {
	jsontree.Reject
	v *map[string]string
}

func (e stringMapElement) Scalar(name string, val jsontree.Value) error {
	s, err := val.Str()
	if err != nil {
		return err
	}
	if *e.v == nil {
		*e.v = map[string]string{}
	}
	(*e.v)[name] = s
	return nil
}

// intArrayElement appends numeric array elements to an int sequence.
type intArrayElement struct {
	jsontree.Reject
	v *[]int
}

func (e intArrayElement) Scalar(_ string, val jsontree.Value) error {
	n, err := val.Int()
	if err != nil {
		return err
	}
	*e.v = append(*e.v, n)
	return nil
}

// stringArrayElement appends string array elements to a string sequence.
type stringArrayElement struct {
	jsontree.Reject
	v *[]string
}

func (e stringArrayElement) Scalar(_ string, val jsontree.Value) error {
	s, err := val.Str()
	if err != nil {
		return err
	}
	*e.v = append(*e.v, s)
	return nil
}

// providerOptionsObjectElement binds one provider-options object, whose keys
// are provider names. A recurring name updates the existing entry so an
// overlay can amend a provider declared by the base document.
type providerOptionsObjectElement struct {
	jsontree.Reject
	v *[]ProviderOptions
}

func (e providerOptionsObjectElement) Object(name string) (jsontree.Visitor, error) {
	entry := findOrCreateProviderOptions(e.v, name)
	return namedStringsElement{v: &entry.Options}, nil
}

func findOrCreateProviderOptions(list *[]ProviderOptions, name string) *ProviderOptions {
	for i := range *list {
		if (*list)[i].Name == name {
			return &(*list)[i]
		}
	}
	*list = append(*list, ProviderOptions{Name: name})
	return &(*list)[len(*list)-1]
}

// providerOptionsArrayElement binds the provider_options array and
// canonicalizes historical provider spellings once the array closes. The
// hook runs on both the base and overlay passes, so stored names are always
// canonical.
type providerOptionsArrayElement struct {
	jsontree.Reject
	v *[]ProviderOptions
}

func (e providerOptionsArrayElement) Object(string) (jsontree.Visitor, error) {
	return providerOptionsObjectElement{v: e.v}, nil
}

func (e providerOptionsArrayElement) Complete(bool) error {
	normalizeProviderOptions(*e.v)
	return nil
}

// sessionOptionsElement binds one session_options object.
type sessionOptionsElement struct {
	jsontree.Reject
	v *SessionOptions
}

func (e sessionOptionsElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "log_id":
		return setStringPtr(&e.v.LogID, val)
	case "enable_profiling":
		return setStringPtr(&e.v.EnableProfiling, val)
	case "ep_context_embed_mode":
		return setStringPtr(&e.v.EPContextEmbedMode, val)
	case "ep_context_file_path":
		return setStringPtr(&e.v.EPContextFilePath, val)
	case "custom_ops_library":
		return setStringPtr(&e.v.CustomOpsLibrary, val)
	case "intra_op_num_threads":
		return setIntPtr(&e.v.IntraOpNumThreads, val)
	case "inter_op_num_threads":
		return setIntPtr(&e.v.InterOpNumThreads, val)
	case "log_severity_level":
		return setIntPtr(&e.v.LogSeverityLevel, val)
	case "enable_cpu_mem_arena":
		return setBoolPtr(&e.v.EnableCPUMemArena, val)
	case "enable_mem_pattern":
		return setBoolPtr(&e.v.EnableMemPattern, val)
	case "disable_cpu_ep_fallback":
		return setBoolPtr(&e.v.DisableCPUEPFallback, val)
	case "disable_quant_qdq":
		return setBoolPtr(&e.v.DisableQuantQDQ, val)
	case "enable_quant_qdq_cleanup":
		return setBoolPtr(&e.v.EnableQuantQDQCleanup, val)
	case "ep_context_enable":
		return setBoolPtr(&e.v.EPContextEnable, val)
	case "use_env_allocators":
		return setBoolPtr(&e.v.UseEnvAllocators, val)
	case "graph_optimization_level":
		s, err := val.Str()
		if err != nil {
			return err
		}
		level, err := ParseGraphOptimizationLevel(s)
		if err != nil {
			return err
		}
		e.v.GraphOptimizationLevel = &level
		return nil
	}
	return jsontree.UnknownField(name)
}

func (e sessionOptionsElement) Object(name string) (jsontree.Visitor, error) {
	if name == "config_entries" {
		return namedStringsElement{v: &e.v.ConfigEntries}, nil
	}
	return nil, jsontree.UnknownField(name)
}

func (e sessionOptionsElement) Array(name string) (jsontree.Visitor, error) {
	if name == "provider_options" {
		return providerOptionsArrayElement{v: &e.v.ProviderOptions}, nil
	}
	return nil, jsontree.UnknownField(name)
}

type encoderInputsElement struct {
	jsontree.Reject
	v *EncoderInputs
}

func (e encoderInputsElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "input_ids":
		return setString(&e.v.InputIDs, val)
	case "inputs_embeds":
		return setString(&e.v.Embeddings, val)
	case "attention_mask":
		return setString(&e.v.AttentionMask, val)
	case "position_ids":
		return setString(&e.v.PositionIDs, val)
	case "audio_features":
		return setString(&e.v.AudioFeatures, val)
	}
	return jsontree.UnknownField(name)
}

type encoderOutputsElement struct {
	jsontree.Reject
	v *EncoderOutputs
}

func (e encoderOutputsElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "encoder_hidden_states":
		return setString(&e.v.HiddenStates, val)
	case "encoder_outputs":
		return setString(&e.v.EncoderOutputs, val)
	case "cross_present_key_names":
		return setString(&e.v.CrossPresentKeyNames, val)
	case "cross_present_value_names":
		return setString(&e.v.CrossPresentValueNames, val)
	}
	return jsontree.UnknownField(name)
}

type encoderElement struct {
	jsontree.Reject
	v *Encoder
}

func (e encoderElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "filename":
		return setString(&e.v.Filename, val)
	case "hidden_size":
		return setInt(&e.v.HiddenSize, val)
	case "num_attention_heads":
		return setInt(&e.v.NumAttentionHeads, val)
	case "num_key_value_heads":
		return setInt(&e.v.NumKeyValueHeads, val)
	case "num_hidden_layers":
		return setInt(&e.v.NumHiddenLayers, val)
	case "head_size":
		return setInt(&e.v.HeadSize, val)
	}
	return jsontree.UnknownField(name)
}

func (e encoderElement) Object(name string) (jsontree.Visitor, error) {
	switch name {
	case "session_options":
		return sessionOptionsElement{v: &e.v.SessionOptions}, nil
	case "inputs":
		return encoderInputsElement{v: &e.v.Inputs}, nil
	case "outputs":
		return encoderOutputsElement{v: &e.v.Outputs}, nil
	}
	return nil, jsontree.UnknownField(name)
}

type decoderInputsElement struct {
	jsontree.Reject
	v *DecoderInputs
}

func (e decoderInputsElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "input_ids":
		return setString(&e.v.InputIDs, val)
	case "inputs_embeds":
		return setString(&e.v.Embeddings, val)
	case "attention_mask":
		return setString(&e.v.AttentionMask, val)
	case "position_ids":
		return setString(&e.v.PositionIDs, val)
	case "past_key_names":
		return setString(&e.v.PastKeyNames, val)
	case "past_value_names":
		return setString(&e.v.PastValueNames, val)
	case "past_names":
		return setString(&e.v.PastNames, val)
	case "cross_past_key_names":
		return setString(&e.v.CrossPastKeyNames, val)
	case "cross_past_value_names":
		return setString(&e.v.CrossPastValueNames, val)
	case "past_sequence_length":
		return setString(&e.v.PastSequenceLength, val)
	case "current_sequence_length":
		return setString(&e.v.CurrentSequenceLength, val)
	case "total_sequence_length":
		return setString(&e.v.TotalSequenceLength, val)
	case "encoder_hidden_states":
		return setString(&e.v.EncoderHiddenStates, val)
	case "encoder_attention_mask":
		return setString(&e.v.EncoderAttentionMask, val)
	case "rnn_states_prev":
		return setString(&e.v.RNNPrevStates, val)
	case "past_key_values_length":
		return setString(&e.v.PastKeyValuesLength, val)
	case "cache_indirection":
		return setString(&e.v.CacheIndirection, val)
	}
	return jsontree.UnknownField(name)
}

type decoderOutputsElement struct {
	jsontree.Reject
	v *DecoderOutputs
}

func (e decoderOutputsElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "logits":
		return setString(&e.v.Logits, val)
	case "present_key_names":
		return setString(&e.v.PresentKeyNames, val)
	case "present_value_names":
		return setString(&e.v.PresentValueNames, val)
	case "present_names":
		return setString(&e.v.PresentNames, val)
	case "output_cross_qk_names":
		return setString(&e.v.OutputCrossQKNames, val)
	case "rnn_states":
		return setString(&e.v.RNNStates, val)
	}
	return jsontree.UnknownField(name)
}

// pipelineModelElement binds one pipeline stage.
type pipelineModelElement struct {
	jsontree.Reject
	v *PipelineModel
}

func (e pipelineModelElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "filename":
		return setString(&e.v.Filename, val)
	case "run_on_prompt":
		return setBool(&e.v.RunOnPrompt, val)
	case "run_on_token_gen":
		return setBool(&e.v.RunOnTokenGen, val)
	case "reset_session_idx":
		return setInt(&e.v.ResetSessionIdx, val)
	}
	return jsontree.UnknownField(name)
}

func (e pipelineModelElement) Object(name string) (jsontree.Visitor, error) {
	switch name {
	case "session_options":
		// A redeclared session_options block starts the stage's session
		// configuration from scratch.
		e.v.SessionOptions = &SessionOptions{}
		return sessionOptionsElement{v: e.v.SessionOptions}, nil
	case "output_names_forwarder":
		return stringMapElement{v: &e.v.OutputNamesForwarder}, nil
	}
	return nil, jsontree.UnknownField(name)
}

func (e pipelineModelElement) Array(name string) (jsontree.Visitor, error) {
	switch name {
	case "inputs":
		return stringArrayElement{v: &e.v.Inputs}, nil
	case "outputs":
		return stringArrayElement{v: &e.v.Outputs}, nil
	}
	return nil, jsontree.UnknownField(name)
}

// pipelineObjectElement binds one pipeline object whose keys are stage ids.
// The key is captured as the stage's ModelID; a recurring id updates the
// existing stage in place instead of appending a duplicate.
type pipelineObjectElement struct {
	jsontree.Reject
	v *[]PipelineModel
}

func (e pipelineObjectElement) Object(name string) (jsontree.Visitor, error) {
	for i := range *e.v {
		if (*e.v)[i].ModelID == name {
			return pipelineModelElement{v: &(*e.v)[i]}, nil
		}
	}
	*e.v = append(*e.v, newPipelineModel(name))
	return pipelineModelElement{v: &(*e.v)[len(*e.v)-1]}, nil
}

func newPipelineModel(id string) PipelineModel {
	return PipelineModel{
		ModelID:         id,
		RunOnPrompt:     true,
		RunOnTokenGen:   true,
		ResetSessionIdx: -1,
	}
}

// pipelineArrayElement binds the pipeline array, whose elements are objects
// of keyed stages.
type pipelineArrayElement struct {
	jsontree.Reject
	v *[]PipelineModel
}

func (e pipelineArrayElement) Object(string) (jsontree.Visitor, error) {
	return pipelineObjectElement{v: e.v}, nil
}

type slidingWindowElement struct {
	jsontree.Reject
	v *SlidingWindow
}

func (e slidingWindowElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "window_size":
		return setInt(&e.v.WindowSize, val)
	case "pad_value":
		return setInt(&e.v.PadValue, val)
	case "alignment":
		return setString(&e.v.Alignment, val)
	case "slide_key_value_cache":
		return setBool(&e.v.SlideKeyValueCache, val)
	case "slide_inputs":
		return setBool(&e.v.SlideInputs, val)
	}
	return jsontree.UnknownField(name)
}

type decoderElement struct {
	jsontree.Reject
	v *Decoder
}

func (e decoderElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "filename":
		return setString(&e.v.Filename, val)
	case "hidden_size":
		return setInt(&e.v.HiddenSize, val)
	case "num_attention_heads":
		return setInt(&e.v.NumAttentionHeads, val)
	case "num_key_value_heads":
		return setInt(&e.v.NumKeyValueHeads, val)
	case "num_hidden_layers":
		return setInt(&e.v.NumHiddenLayers, val)
	case "head_size":
		return setInt(&e.v.HeadSize, val)
	}
	return jsontree.UnknownField(name)
}

func (e decoderElement) Object(name string) (jsontree.Visitor, error) {
	switch name {
	case "session_options":
		return sessionOptionsElement{v: &e.v.SessionOptions}, nil
	case "inputs":
		return decoderInputsElement{v: &e.v.Inputs}, nil
	case "outputs":
		return decoderOutputsElement{v: &e.v.Outputs}, nil
	case "sliding_window":
		// Redeclaring the policy resets it to defaults first.
		e.v.SlidingWindow = newSlidingWindow()
		return slidingWindowElement{v: e.v.SlidingWindow}, nil
	}
	return nil, jsontree.UnknownField(name)
}

func (e decoderElement) Array(name string) (jsontree.Visitor, error) {
	if name == "pipeline" {
		return pipelineArrayElement{v: &e.v.Pipeline}, nil
	}
	return nil, jsontree.UnknownField(name)
}

func newSlidingWindow() *SlidingWindow {
	return &SlidingWindow{
		Alignment:          "right",
		SlideKeyValueCache: true,
		SlideInputs:        true,
	}
}

type visionInputsElement struct {
	jsontree.Reject
	v *VisionInputs
}

func (e visionInputsElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "pixel_values":
		return setString(&e.v.PixelValues, val)
	case "image_sizes":
		return setString(&e.v.ImageSizes, val)
	case "attention_mask":
		return setString(&e.v.AttentionMask, val)
	}
	return jsontree.UnknownField(name)
}

type visionOutputsElement struct {
	jsontree.Reject
	v *VisionOutputs
}

func (e visionOutputsElement) Scalar(name string, val jsontree.Value) error {
	if name == "image_features" {
		return setString(&e.v.ImageFeatures, val)
	}
	return jsontree.UnknownField(name)
}

type visionElement struct {
	jsontree.Reject
	v *Vision
}

func (e visionElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "filename":
		return setString(&e.v.Filename, val)
	case "config_filename":
		return setString(&e.v.ConfigFilename, val)
	case "adapter_filename":
		return setString(&e.v.AdapterFilename, val)
	}
	return jsontree.UnknownField(name)
}

func (e visionElement) Object(name string) (jsontree.Visitor, error) {
	switch name {
	case "inputs":
		return visionInputsElement{v: &e.v.Inputs}, nil
	case "outputs":
		return visionOutputsElement{v: &e.v.Outputs}, nil
	}
	return nil, jsontree.UnknownField(name)
}

type speechInputsElement struct {
	jsontree.Reject
	v *SpeechInputs
}

func (e speechInputsElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "audio_embeds":
		return setString(&e.v.AudioEmbeds, val)
	case "attention_mask":
		return setString(&e.v.AttentionMask, val)
	case "audio_sizes":
		return setString(&e.v.AudioSizes, val)
	case "audio_projection_mode":
		return setString(&e.v.AudioProjectionMode, val)
	}
	return jsontree.UnknownField(name)
}

type speechOutputsElement struct {
	jsontree.Reject
	v *SpeechOutputs
}

func (e speechOutputsElement) Scalar(name string, val jsontree.Value) error {
	if name == "audio_features" {
		return setString(&e.v.AudioFeatures, val)
	}
	return jsontree.UnknownField(name)
}

type speechElement struct {
	jsontree.Reject
	v *Speech
}

func (e speechElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "filename":
		return setString(&e.v.Filename, val)
	case "config_filename":
		return setString(&e.v.ConfigFilename, val)
	case "adapter_filename":
		return setString(&e.v.AdapterFilename, val)
	}
	return jsontree.UnknownField(name)
}

func (e speechElement) Object(name string) (jsontree.Visitor, error) {
	switch name {
	case "inputs":
		return speechInputsElement{v: &e.v.Inputs}, nil
	case "outputs":
		return speechOutputsElement{v: &e.v.Outputs}, nil
	}
	return nil, jsontree.UnknownField(name)
}

type embeddingInputsElement struct {
	jsontree.Reject
	v *EmbeddingInputs
}

func (e embeddingInputsElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "input_ids":
		return setString(&e.v.InputIDs, val)
	case "image_features":
		return setString(&e.v.ImageFeatures, val)
	case "audio_features":
		return setString(&e.v.AudioFeatures, val)
	}
	return jsontree.UnknownField(name)
}

type embeddingOutputsElement struct {
	jsontree.Reject
	v *EmbeddingOutputs
}

func (e embeddingOutputsElement) Scalar(name string, val jsontree.Value) error {
	if name == "inputs_embeds" {
		return setString(&e.v.Embeddings, val)
	}
	return jsontree.UnknownField(name)
}

type embeddingElement struct {
	jsontree.Reject
	v *Embedding
}

func (e embeddingElement) Scalar(name string, val jsontree.Value) error {
	if name == "filename" {
		return setString(&e.v.Filename, val)
	}
	return jsontree.UnknownField(name)
}

func (e embeddingElement) Object(name string) (jsontree.Visitor, error) {
	switch name {
	case "inputs":
		return embeddingInputsElement{v: &e.v.Inputs}, nil
	case "outputs":
		return embeddingOutputsElement{v: &e.v.Outputs}, nil
	}
	return nil, jsontree.UnknownField(name)
}

type modelElement struct {
	jsontree.Reject
	v *Model
}

func (e modelElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "type":
		return setString(&e.v.Type, val)
	case "vocab_size":
		return setInt(&e.v.VocabSize, val)
	case "context_length":
		return setInt(&e.v.ContextLength, val)
	case "pad_token_id":
		return setInt(&e.v.PadTokenID, val)
	case "eos_token_id":
		// Scalar form replaces the sequence with a single element; the
		// array form below appends instead.
		n, err := val.Int()
		if err != nil {
			return err
		}
		e.v.EOSTokenID = []int{n}
		return nil
	case "bos_token_id":
		return setInt(&e.v.BOSTokenID, val)
	case "decoder_start_token_id":
		return setInt(&e.v.DecoderStartTokenID, val)
	case "sep_token_id":
		return setInt(&e.v.SepTokenID, val)
	}
	return jsontree.UnknownField(name)
}

func (e modelElement) Object(name string) (jsontree.Visitor, error) {
	switch name {
	case "encoder":
		return encoderElement{v: &e.v.Encoder}, nil
	case "decoder":
		return decoderElement{v: &e.v.Decoder}, nil
	case "vision":
		return visionElement{v: &e.v.Vision}, nil
	case "speech":
		return speechElement{v: &e.v.Speech}, nil
	case "embedding":
		return embeddingElement{v: &e.v.Embedding}, nil
	}
	return nil, jsontree.UnknownField(name)
}

func (e modelElement) Array(name string) (jsontree.Visitor, error) {
	if name == "eos_token_id" {
		return intArrayElement{v: &e.v.EOSTokenID}, nil
	}
	return nil, jsontree.UnknownField(name)
}

type searchElement struct {
	jsontree.Reject
	v *Search
}

func (e searchElement) Scalar(name string, val jsontree.Value) error {
	switch name {
	case "do_sample":
		return setBool(&e.v.DoSample, val)
	case "min_length":
		return setInt(&e.v.MinLength, val)
	case "max_length":
		return setInt(&e.v.MaxLength, val)
	case "batch_size":
		return setInt(&e.v.BatchSize, val)
	case "num_beams":
		return setInt(&e.v.NumBeams, val)
	case "num_return_sequences":
		return setInt(&e.v.NumReturnSequences, val)
	case "top_k":
		return setInt(&e.v.TopK, val)
	case "top_p":
		return setFloat32(&e.v.TopP, val)
	case "temperature":
		return setFloat32(&e.v.Temperature, val)
	case "repetition_penalty":
		return setFloat32(&e.v.RepetitionPenalty, val)
	case "length_penalty":
		return setFloat32(&e.v.LengthPenalty, val)
	case "diversity_penalty":
		return setFloat32(&e.v.DiversityPenalty, val)
	case "no_repeat_ngram_size":
		return setInt(&e.v.NoRepeatNgramSize, val)
	case "early_stopping":
		return setBool(&e.v.EarlyStopping, val)
	case "random_seed":
		return setInt(&e.v.RandomSeed, val)
	case "past_present_share_buffer":
		return setBool(&e.v.PastPresentShareBuffer, val)
	}
	return jsontree.UnknownField(name)
}

// rootElement accepts exactly the two top-level sections; anything else is a
// schema error.
type rootElement struct {
	jsontree.Reject
	v *Config
}

func (e rootElement) Object(name string) (jsontree.Visitor, error) {
	switch name {
	case "model":
		return modelElement{v: &e.v.Model}, nil
	case "search":
		return searchElement{v: &e.v.Search}, nil
	}
	return nil, jsontree.UnknownField(name)
}

// rootDocument unwraps the document's anonymous top-level object.
type rootDocument struct {
	jsontree.Reject
	root rootElement
}

func (e rootDocument) Object(string) (jsontree.Visitor, error) {
	return e.root, nil
}
