//go:build otpbypass

package services

// otpBypassCompiledIn is true only in binaries built with -tags otpbypass
const otpBypassCompiledIn = true
