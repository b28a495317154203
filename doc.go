// Package avifhdr models AVIF-style still images with gain maps.
//
// An Image holds Y, U and V planes (and optional alpha) at 8 to 16 bits with a CICP color
// description. FromRGB and ToRGB convert between packed RGB and planar YUV for every
// supported matrix family, range and chroma subsampling. ComputeGainMap, ApplyGainMap
// and SwapBase create, render and re-base ISO 21496-1 gain maps.
//
// Encoding to AV1 is delegated to the backends in internal/codec, which are bundled with
// their metadata by internal/container.
package avifhdr
