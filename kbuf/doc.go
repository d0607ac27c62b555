// Package kbuf allocates DMA-capable kernel buffers for the rear-view
// camera pipeline's scanout path, through either the modern DMA-heap
// allocator (/dev/dma_heap/*) or the legacy ION allocator (/dev/ion),
// producing a BufferHandle each caller hands off to the display layer.
package kbuf
