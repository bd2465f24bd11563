package meshconfig

// ValidateProvisionerRanges checks a single provisioner's own declared
// ranges for internal well-formedness, independent of any other
// provisioner (spec.md §7 invalidRange).
func ValidateProvisionerRanges(p ProvisionerEntry) error {
	if len(p.AllocatedUnicastRange) == 0 {
		return ErrInvalidRange
	}
	for _, r := range p.AllocatedUnicastRange {
		if !r.Valid() || r.HighAddr > 0x7FFF {
			return ErrInvalidRange
		}
	}
	for _, r := range p.AllocatedGroupRange {
		if !r.Valid() || r.LowAddr < 0xC000 || r.HighAddr > 0xFEFF {
			return ErrInvalidRange
		}
	}
	return nil
}

// CheckOverlap reports whether candidate's unicast or group ranges
// overlap any existing provisioner's ranges (spec.md §7
// overlappingProvisionerRanges). Provisioners are compared by UUID so a
// provisioner re-registering its own unchanged ranges does not conflict
// with itself.
func CheckOverlap(existing []ProvisionerEntry, candidate ProvisionerEntry) error {
	for _, other := range existing {
		if other.UUID == candidate.UUID {
			continue
		}
		if rangesOverlap(other.AllocatedUnicastRange, candidate.AllocatedUnicastRange) {
			return ErrOverlappingProvisionerRanges
		}
		if rangesOverlap(other.AllocatedGroupRange, candidate.AllocatedGroupRange) {
			return ErrOverlappingProvisionerRanges
		}
	}
	return nil
}

func rangesOverlap(a, b []AddressRange) bool {
	for _, ra := range a {
		for _, rb := range b {
			if ra.Overlaps(rb) {
				return true
			}
		}
	}
	return false
}

// AllocateUnicastAddress finds the lowest unicast address within
// provisioner's allocated ranges that can host a node spanning
// elementCount contiguous addresses without overlapping any node in
// nodes (spec.md §7 addressNotAvailable / noAddressAvailable).
func AllocateUnicastAddress(provisioner ProvisionerEntry, elementCount uint8, nodes []NodeEntry) (uint16, error) {
	if elementCount == 0 {
		elementCount = 1
	}
	for _, r := range provisioner.AllocatedUnicastRange {
		for addr := r.LowAddr; addr <= r.HighAddr; addr++ {
			span := AddressRange{LowAddr: addr, HighAddr: addr + uint16(elementCount) - 1}
			if span.HighAddr > r.HighAddr || span.HighAddr < addr {
				break // span would overrun this range or wrap past 0xFFFF
			}
			if !occupiedByAny(nodes, span) {
				return addr, nil
			}
		}
	}
	return 0, ErrNoAddressAvailable
}

// IsAddressAvailable reports whether a specific unicast address span is
// free of every existing node (spec.md §7 addressNotAvailable).
func IsAddressAvailable(nodes []NodeEntry, span AddressRange) bool {
	return !occupiedByAny(nodes, span)
}

func occupiedByAny(nodes []NodeEntry, span AddressRange) bool {
	for _, n := range nodes {
		if n.ElementRange().Overlaps(span) {
			return true
		}
	}
	return false
}
