package entities

import (
	"github.com/dustin/go-humanize"
)

type Memory struct {
	RAM RAM `json:"ram"`
}

type RAM struct {
	Free  float64 `json:"free"`
	Used  float64 `json:"used"`
	Total float64 `json:"total"`
}

type ReadableMemory struct {
	Free  string `json:"free"`
	Used  string `json:"used"`
	Total string `json:"total"`
}

func (mem *RAM) Readable() *ReadableMemory {
	return &ReadableMemory{
		Free:  readableMemory(mem.Free),
		Used:  readableMemory(mem.Used),
		Total: readableMemory(mem.Total),
	}
}

func readableMemory(bytes float64) string {
	return humanize.IBytes(uint64(bytes))
}
