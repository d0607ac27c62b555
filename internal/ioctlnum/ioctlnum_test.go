package ioctlnum

import "testing"

// Known-good request codes, cross-checked against asm-generic/ioctl.h's
// expansion of _IO/_IOR/_IOW/_IOWR for the same type/nr/size.
func TestIO(t *testing.T) {
	if got, want := IO('U', 0x00), uintptr(0x5500); got != want {
		t.Errorf("IO('U', 0x00) = %#x, want %#x", got, want)
	}
}

func TestIOWR(t *testing.T) {
	// DMA_HEAP_IOCTL_ALLOC = _IOWR('H', 0x0, struct dma_heap_allocation_data),
	// a 24-byte struct (u64 len, u32 fd, u32 fd_flags, u64 heap_flags).
	got := IOWR('H', 0x0, 24)
	want := uintptr(3)<<dirShift | uintptr(24)<<sizeShift | uintptr('H')<<typeShift
	if got != want {
		t.Errorf("IOWR('H', 0x0, 24) = %#x, want %#x", got, want)
	}
}

func TestDirectionBitsDoNotOverlap(t *testing.T) {
	r := IOR('a', 1, 4)
	w := IOW('a', 1, 4)
	if r == w {
		t.Error("IOR and IOW with identical type/nr/size must differ in the direction bits")
	}
}

func TestSizeIsEncoded(t *testing.T) {
	small := IOW('a', 1, 4)
	big := IOW('a', 1, 8)
	if small == big {
		t.Error("varying size must change the encoded request number")
	}
}
