//go:build !otpbypass

package services

// otpBypassCompiledIn is false in every regular build, so no configuration
// can enable the verification bypass
const otpBypassCompiledIn = false
