package knowledge

import "strings"

// Chunk splits document content into overlapping chunks for embedding.
// Chunks end on a natural break when one falls inside the lookback window:
// a blank line first, then sentence punctuation. The overlap keeps context
// that straddles a boundary retrievable from either side.
func Chunk(content string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size / 4
	}

	var chunks []string
	pos := 0
	length := len(content)

	for pos < length {
		end := pos + size
		if end > length {
			end = length
		}

		if end < length {
			lookback := size / 10
			if lookback > 100 {
				lookback = 100
			}
			windowStart := end - lookback
			if windowStart < pos {
				windowStart = pos
			}

			if idx := strings.LastIndex(content[windowStart:end], "\n\n"); idx != -1 {
				end = windowStart + idx
			} else {
				for _, punct := range []string{". ", "! ", "? ", "\n"} {
					if idx := strings.LastIndex(content[windowStart:end], punct); idx != -1 {
						end = windowStart + idx + 1
						break
					}
				}
			}
		}

		if chunk := strings.TrimSpace(content[pos:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= length {
			break
		}
		next := end - overlap
		if next <= pos {
			// A pathological break position must not stall the scan.
			next = pos + 1
		}
		pos = next
	}
	return chunks
}
