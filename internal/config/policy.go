package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// policyFile mirrors the YAML document accepted by ORDERING_POLICY_FILE.
//
//	allocation_read:   {attempts: 2, spacing: 100ms, timeout: 1s}
//	verification_read: {attempts: 3, spacing: 150ms, timeout: 2s}
//	repair_write:      {attempts: 2, spacing: 100ms, backoff: exponential}
type policyFile struct {
	AllocationRead   *RetryPolicy `yaml:"allocation_read"`
	VerificationRead *RetryPolicy `yaml:"verification_read"`
	RepairWrite      *RetryPolicy `yaml:"repair_write"`
}

func (o *Ordering) applyPolicyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read ordering policy file: %w", err)
	}
	return o.applyPolicyYAML(raw)
}

func (o *Ordering) applyPolicyYAML(raw []byte) error {
	var doc policyFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse ordering policy file: %w", err)
	}
	if doc.AllocationRead != nil {
		o.AllocationRead = merge(o.AllocationRead, *doc.AllocationRead)
	}
	if doc.VerificationRead != nil {
		o.VerificationRead = merge(o.VerificationRead, *doc.VerificationRead)
	}
	if doc.RepairWrite != nil {
		o.RepairWrite = merge(o.RepairWrite, *doc.RepairWrite)
	}
	return nil
}

// merge overlays the non-zero fields of override onto base.
func merge(base, override RetryPolicy) RetryPolicy {
	if override.Attempts > 0 {
		base.Attempts = override.Attempts
	}
	if override.Spacing > 0 {
		base.Spacing = override.Spacing
	}
	if override.Backoff != "" {
		base.Backoff = override.Backoff
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	return base
}
