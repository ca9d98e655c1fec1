package genconfig

import (
	"fmt"
	"slices"

	"github.com/samcharles93/genaiconf/internal/jsontree"
)

// GraphOptimizationLevel selects how aggressively the session optimizes the
// graph before execution.
type GraphOptimizationLevel int

const (
	GraphOptimizationDisableAll GraphOptimizationLevel = iota
	GraphOptimizationEnableBasic
	GraphOptimizationEnableExtended
	GraphOptimizationEnableAll
)

// ParseGraphOptimizationLevel maps the document spelling of an optimization
// level to its enum value.
func ParseGraphOptimizationLevel(name string) (GraphOptimizationLevel, error) {
	switch name {
	case "ORT_DISABLE_ALL":
		return GraphOptimizationDisableAll, nil
	case "ORT_ENABLE_BASIC":
		return GraphOptimizationEnableBasic, nil
	case "ORT_ENABLE_EXTENDED":
		return GraphOptimizationEnableExtended, nil
	case "ORT_ENABLE_ALL":
		return GraphOptimizationEnableAll, nil
	}
	return 0, fmt.Errorf("unrecognized graph_optimization_level %q", name)
}

func (l GraphOptimizationLevel) String() string {
	switch l {
	case GraphOptimizationDisableAll:
		return "ORT_DISABLE_ALL"
	case GraphOptimizationEnableBasic:
		return "ORT_ENABLE_BASIC"
	case GraphOptimizationEnableExtended:
		return "ORT_ENABLE_EXTENDED"
	case GraphOptimizationEnableAll:
		return "ORT_ENABLE_ALL"
	}
	return fmt.Sprintf("GraphOptimizationLevel(%d)", int(l))
}

// MarshalJSON writes the document spelling so a dumped configuration can be
// bound again.
func (l GraphOptimizationLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// TensorElementType identifies the element type a tensor value carries.
type TensorElementType int

const (
	TensorElementFloat32 TensorElementType = iota
	TensorElementFloat16
)

// ParseTensorElementType maps a document type name to its enum value.
func ParseTensorElementType(name string) (TensorElementType, error) {
	switch name {
	case "float32":
		return TensorElementFloat32, nil
	case "float16":
		return TensorElementFloat16, nil
	}
	return 0, fmt.Errorf("invalid tensor type %q", name)
}

func (t TensorElementType) String() string {
	switch t {
	case TensorElementFloat32:
		return "float32"
	case TensorElementFloat16:
		return "float16"
	}
	return fmt.Sprintf("TensorElementType(%d)", int(t))
}

// NormalizeProviderName fixes the casing of historical provider spellings to
// the current runtime names. Unrecognized names pass through unchanged.
func NormalizeProviderName(name string) string {
	switch name {
	case "qnn":
		return "QNN"
	case "webgpu":
		return "WebGPU"
	case "dml":
		return "DML"
	}
	return name
}

func normalizeProviderOptions(list []ProviderOptions) {
	for i := range list {
		list[i].Name = NormalizeProviderName(list[i].Name)
	}
}

// backfillProviders derives the provider list from the declared option sets
// when a document configures providers only through provider_options.
func backfillProviders(so *SessionOptions) {
	for _, po := range so.ProviderOptions {
		if !slices.Contains(so.Providers, po.Name) {
			so.Providers = append(so.Providers, po.Name)
		}
	}
}

func findProviderOptions(so *SessionOptions, name string) *ProviderOptions {
	for i := range so.ProviderOptions {
		if so.ProviderOptions[i].Name == name {
			return &so.ProviderOptions[i]
		}
	}
	return nil
}

// ClearProviders empties the decoder's provider list, typically before
// rebuilding it with SetProviderOption.
func (c *Config) ClearProviders() {
	c.Model.Decoder.SessionOptions.Providers = nil
}

// SetProviderOption registers a provider on the decoder session and sets one
// of its options. An empty option name registers the provider without
// touching its option set. The provider name is normalized first, so "dml"
// and "DML" address the same entry.
func (c *Config) SetProviderOption(provider, option, value string) {
	so := &c.Model.Decoder.SessionOptions
	name := NormalizeProviderName(provider)
	if !slices.Contains(so.Providers, name) {
		so.Providers = append(so.Providers, name)
	}
	entry := findOrCreateProviderOptions(&so.ProviderOptions, name)
	if option == "" {
		return
	}
	for i := range entry.Options {
		if entry.Options[i].Name == option {
			entry.Options[i].Value = value
			return
		}
	}
	entry.Options = append(entry.Options, NamedString{Name: option, Value: value})
}

// AppendProvider adds a provider to the decoder's provider list without
// declaring any options for it.
func (c *Config) AppendProvider(provider string) {
	so := &c.Model.Decoder.SessionOptions
	name := NormalizeProviderName(provider)
	if !slices.Contains(so.Providers, name) {
		so.Providers = append(so.Providers, name)
	}
}

// IsGraphCaptureEnabled reports whether the session is eligible for graph
// capture. The first provider in declaration order that also has an options
// entry decides. CUDA with enable_cuda_graph=1 is rejected outright.
func (so *SessionOptions) IsGraphCaptureEnabled() (bool, error) {
	for _, provider := range so.Providers {
		po := findProviderOptions(so, provider)
		if po == nil {
			continue
		}
		switch po.Name {
		case "cuda":
			for _, opt := range po.Options {
				if opt.Name == "enable_cuda_graph" && opt.Value == "1" {
					return false, ErrCudaGraphCapture
				}
			}
		case "DML":
			return true, nil
		case "NvTensorRtRtx":
			for _, opt := range po.Options {
				if opt.Name == "enable_cuda_graph" && opt.Value == "1" {
					return true, nil
				}
			}
			return false, nil
		}
	}
	return false, nil
}

// IsMultiProfileEnabled reports whether the NvTensorRtRtx provider asked for
// multi-profile execution.
func (so *SessionOptions) IsMultiProfileEnabled() bool {
	for _, provider := range so.Providers {
		po := findProviderOptions(so, provider)
		if po == nil {
			continue
		}
		if po.Name == "NvTensorRtRtx" {
			for _, opt := range po.Options {
				if opt.Name == "nv_multi_profile_enable" && opt.Value == "1" {
					return true
				}
			}
		}
	}
	return false
}

// SetSearchNumber sets one numeric search hyperparameter by its document
// field name, going through the same binding path as a parsed document.
func SetSearchNumber(s *Search, name string, value float64) error {
	if err := (searchElement{v: s}).Scalar(name, jsontree.Number(value)); err != nil {
		return fmt.Errorf("search option %q: %w", name, err)
	}
	return nil
}

// SetSearchBool sets one boolean search hyperparameter by its document field
// name.
func SetSearchBool(s *Search, name string, value bool) error {
	if err := (searchElement{v: s}).Scalar(name, jsontree.Boolean(value)); err != nil {
		return fmt.Errorf("search option %q: %w", name, err)
	}
	return nil
}
