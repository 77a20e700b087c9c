// Package model provides capability-based model selection for pipeline
// stages. Instead of hardcoding model names, stages specify capabilities
// (drafting, vision, synthesis) and the registry resolves them to
// available models with fallback chains.
package model

// Capability represents a semantic capability for model selection.
// Stages specify "vision" or "drafting" rather than a concrete model.
type Capability string

const (
	// CapabilityDrafting is for low-temperature analytical answer drafting.
	CapabilityDrafting Capability = "drafting"

	// CapabilityVision is for critique of page images; resolved models
	// must accept image inputs.
	CapabilityVision Capability = "vision"

	// CapabilitySynthesis is for merging text and visual evidence into a
	// final answer.
	CapabilitySynthesis Capability = "synthesis"

	// CapabilityFast is for quick responses, simple tasks.
	CapabilityFast Capability = "fast"
)

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityDrafting, CapabilityVision, CapabilitySynthesis, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for
// invalid values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
