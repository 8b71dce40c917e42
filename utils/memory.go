package utils

import (
	"github.com/shirou/gopsutil/mem"

	"bracket_stripes/entities"
)

// GetMemory returns the current memory usage of the system.
func GetMemory() (*entities.Memory, error) {
	vmem, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}

	memory := &entities.Memory{
		RAM: entities.RAM{
			Free:  float64(vmem.Available),
			Used:  float64(vmem.Used),
			Total: float64(vmem.Total),
		},
	}

	return memory, nil
}

func GetMemoryReadable() (*entities.ReadableMemory, error) {
	memory, err := GetMemory()
	if err != nil {
		return nil, err
	}

	return memory.RAM.Readable(), nil
}
