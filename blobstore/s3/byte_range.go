package s3

import "fmt"

func byteRange(first, last int64) string {
	return fmt.Sprintf("bytes=%d-%d", first, last)
}
