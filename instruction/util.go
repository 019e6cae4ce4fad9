package instruction

// IndexAtOffset returns the index of the node at exactly the given
// offset, or -1.
func IndexAtOffset(list []Instruction, offset int) int {
	for i, in := range list {
		if in.Offset() == offset {
			return i
		}
		if in.Offset() > offset {
			break
		}
	}
	return -1
}

// IndexForOffset returns the index of the first node at or after the
// given offset, or len(list) when every node lies before it.
func IndexForOffset(list []Instruction, offset int) int {
	for i, in := range list {
		if in.Offset() >= offset {
			return i
		}
	}
	return len(list)
}

// AtOffset returns the node at exactly the given offset, or nil.
func AtOffset(list []Instruction, offset int) Instruction {
	if i := IndexAtOffset(list, offset); i >= 0 {
		return list[i]
	}
	return nil
}

// LastOffset returns the offset of the last node, or -1 for an empty
// list.
func LastOffset(list []Instruction) int {
	if len(list) == 0 {
		return -1
	}
	return list[len(list)-1].Offset()
}

// Remove deletes the node at index i, preserving order.
func Remove(list []Instruction, i int) []Instruction {
	return append(list[:i], list[i+1:]...)
}

// Insert places a node at index i, preserving order.
func Insert(list []Instruction, i int, in Instruction) []Instruction {
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = in
	return list
}
