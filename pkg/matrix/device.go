package matrix

// DeviceMatrix is the write side of a System as seen by device loaders.
// Rows are 1-based; row 0 writes are dropped.
type DeviceMatrix interface {
	AddF(h Handle, value float64)
	AddQ(h Handle, value float64)
	AddFVector(row int, value float64)
	AddQVector(row int, value float64)
	AddFdxpVector(row int, value float64)
	AddQdxpVector(row int, value float64)
	AddBVector(row int, value float64)
}

var _ DeviceMatrix = (*System)(nil)
var _ Registrar = (*System)(nil)
