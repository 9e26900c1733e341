package main

import (
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

type EventDataHDF5 struct {
	evt_number int32
	timestamp  float64
}

type BlockHeaderHDF5 struct {
	evt_number              int32
	channel                 int32
	buffer_size             int64
	actual_points           int64
	first_valid_point       int64
	initial_x_offset        float64
	initial_x_time_seconds  float64
	initial_x_time_fraction float64
	x_increment             float64
	scale_factor            float64
	scale_offset            float64
}

// H5S_UNLIMITED is -1L
const unlimited = ^uint(0)

func createArray(group *hdf5.Group, name string, nSamples int, compression int) (*hdf5.Dataset, error) {
	dims := []uint{0, uint(nSamples)}
	maxDims := []uint{unlimited, uint(nSamples)}
	space, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, fmt.Errorf("error creating dataspace for %s: %w", name, err)
	}
	defer space.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, fmt.Errorf("error creating property list for %s: %w", name, err)
	}
	defer plist.Close()
	plist.SetChunk([]uint{1, uint(nSamples)})
	plist.SetDeflate(compression)

	return group.CreateDatasetWith(name, hdf5.T_NATIVE_INT8, space, plist)
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*hdf5.Dataset, error) {
	space, err := hdf5.CreateSimpleDataspace([]uint{0}, []uint{unlimited})
	if err != nil {
		return nil, fmt.Errorf("error creating dataspace for %s: %w", name, err)
	}
	defer space.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, fmt.Errorf("error creating property list for %s: %w", name, err)
	}
	defer plist.Close()
	plist.SetChunk([]uint{32768})
	plist.SetDeflate(compression)

	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, fmt.Errorf("error creating datatype for %s: %w", name, err)
	}
	return group.CreateDatasetWith(name, dtype, space, plist)
}

// appendRows extends dataset along its first axis and writes rows of
// rowLength values starting at offset.
func appendRows[T any](dataset *hdf5.Dataset, data *[]T, offset int, rows int, rowLength int) error {
	newsize := []uint{uint(offset + rows)}
	start := []uint{uint(offset)}
	count := []uint{uint(rows)}
	if rowLength > 0 {
		newsize = append(newsize, uint(rowLength))
		start = append(start, 0)
		count = append(count, uint(rowLength))
	}
	if err := dataset.Resize(newsize); err != nil {
		return fmt.Errorf("error resizing dataset: %w", err)
	}
	filespace := dataset.Space()
	defer filespace.Close()
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return fmt.Errorf("error selecting hyperslab: %w", err)
	}

	dataspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return fmt.Errorf("error creating memory dataspace: %w", err)
	}
	defer dataspace.Close()

	return dataset.WriteSubset(data, dataspace, filespace)
}
