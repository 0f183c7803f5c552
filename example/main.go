package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ndarrayio/gonpy"
)

func main() {
	// Example 1: building and saving a single array
	fmt.Println("Example 1: Writing an array to an NPY file")
	dtype := gonpy.ScalarDtype(gonpy.EndianLittle, 'i', 8)
	arr := gonpy.NewNdarray(dtype, gonpy.Shape{2, 3})
	for i := 0; i < arr.Len(); i++ {
		gonpy.SetValue(arr, i, int64(i*10))
	}

	npyPath := "test.npy"
	if res := gonpy.Save(npyPath, arr, true); res.IsError() {
		log.Fatalf("Failed to write NPY file: %v", res)
	}
	fmt.Printf("Wrote %s to %s\n", arr, npyPath)

	// Example 2: loading it back eagerly
	fmt.Println("\nExample 2: Reading an array from an NPY file")
	var loaded gonpy.Ndarray
	if res := gonpy.Load(npyPath, &loaded); res.IsError() {
		log.Fatalf("Failed to read NPY file: %v", res)
	}
	fmt.Printf("Read %s, element (1,2) = %d\n", &loaded, gonpy.ValueAt[int64](&loaded, 1, 2))

	// Example 3: lazy typed iteration with early exit
	fmt.Println("\nExample 3: Lazy iteration")
	sum := int64(0)
	res := gonpy.FromNpyTyped(npyPath, func(flat int, v int64) bool {
		sum += v
		return flat < 3
	}, nil)
	if res.IsError() {
		log.Fatalf("Lazy read failed: %v", res)
	}
	fmt.Printf("Partial sum over the first 4 items: %d\n", sum)

	// Example 4: several arrays in one compressed NPZ archive
	fmt.Println("\nExample 4: Writing an NPZ archive")
	other := gonpy.NewNdarray(gonpy.ScalarDtype(gonpy.EndianLittle, 'f', 8), gonpy.Shape{4})
	for i := 0; i < other.Len(); i++ {
		gonpy.SetValue(other, i, float64(i)/2)
	}
	npzPath := "test.npz"
	args := []gonpy.NamedArray{
		{Name: "ints", Array: arr},
		{Name: "floats", Array: other},
	}
	if res := gonpy.SaveZCompressed(npzPath, args, true, 6); res.IsError() {
		log.Fatalf("Failed to write NPZ file: %v", res)
	}

	// Example 5: reading the archive back
	fmt.Println("\nExample 5: Reading an NPZ archive")
	var npz gonpy.NpzFile
	if res := gonpy.LoadZ(npzPath, &npz); res.IsError() {
		log.Fatalf("Failed to read NPZ file: %v", res)
	}
	for _, name := range npz.Names {
		fmt.Printf("Member %q: %s\n", name, npz.Get(name))
	}

	// Clean up
	if err := os.Remove(npyPath); err != nil {
		log.Printf("Failed to remove %s: %v", npyPath, err)
	}
	if err := os.Remove(npzPath); err != nil {
		log.Printf("Failed to remove %s: %v", npzPath, err)
	}
}
