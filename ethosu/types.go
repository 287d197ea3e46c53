// types.go - Aufzaehlungstypen fuer die Hardware-Operatoren
// Enthaelt: Activation, RoundingMode, Upscale, PoolingType, Layout-Konstanten.
package ethosu

// Activation selects the fused activation of a hardware operator.
type Activation string

const (
	ActivationNone    Activation = "NONE"
	ActivationClip    Activation = "CLIP"
	ActivationTanh    Activation = "TANH"
	ActivationSigmoid Activation = "SIGMOID"
	ActivationLUT     Activation = "LUT"
)

// RoundingMode selects how the hardware rounds requantized results.
type RoundingMode string

const (
	RoundingTFL      RoundingMode = "TFL"
	RoundingTruncate RoundingMode = "TRUNCATE"
	RoundingNatural  RoundingMode = "NATURAL"
)

// Upscale selects the input upscaling mode.
type Upscale string

const (
	UpscaleNone Upscale = "NONE"
)

// PoolingType selects the pooling reduction.
type PoolingType string

const (
	PoolingMax PoolingType = "MAX"
	PoolingAvg PoolingType = "AVG"
)

// LayoutNHWC is the channel-last feature-map layout the hardware
// accepts. Weight layouts are handled per operator.
const LayoutNHWC = "NHWC"

// MaxKernelHeight is the tallest pooling/kernel window the hardware
// supports before the mean legalizer has to flatten the window.
const MaxKernelHeight = 64
