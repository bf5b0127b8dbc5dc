package catalogue

// DefaultChunkSize bounds how many catalogue lines one task works through
// inside a single transaction.
const DefaultChunkSize = 40

// PartitionLines splits lines into groups of exactly size, except the last
// group which may be shorter. The trailing group is never padded. The
// concatenation of the returned groups equals the input, in order.
func PartitionLines(lines []ProductLine, size int) [][]ProductLine {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if len(lines) == 0 {
		return nil
	}

	chunks := make([][]ProductLine, 0, (len(lines)+size-1)/size)
	for start := 0; start < len(lines); start += size {
		end := start + size
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, lines[start:end:end])
	}
	return chunks
}
