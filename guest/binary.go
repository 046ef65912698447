package guest

// Binary encoding of the re-export module built by Heap.Instantiate:
//
//	(module
//	  (import "<host>" "cabi_realloc" (func (param i32 i32 i32 i32) (result i32)))
//	  (export "cabi_realloc" (func 0)))

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

const (
	sectionType   = 0x01
	sectionImport = 0x02
	sectionExport = 0x07

	kindFunc = 0x00
	typeFunc = 0x60
	typeI32  = 0x7f
)

func reexportModule(host string) []byte {
	types := []byte{1, typeFunc, 4, typeI32, typeI32, typeI32, typeI32, 1, typeI32}

	imports := []byte{1}
	imports = appendName(imports, host)
	imports = appendName(imports, ReallocExport)
	imports = append(imports, kindFunc, 0) // type 0

	exports := []byte{1}
	exports = appendName(exports, ReallocExport)
	exports = append(exports, kindFunc, 0) // func 0, the import

	out := append([]byte(nil), wasmHeader...)
	out = appendSection(out, sectionType, types)
	out = appendSection(out, sectionImport, imports)
	out = appendSection(out, sectionExport, exports)
	return out
}

func appendSection(b []byte, id byte, body []byte) []byte {
	b = append(b, id)
	b = appendULEB(b, uint32(len(body)))
	return append(b, body...)
}

func appendName(b []byte, s string) []byte {
	b = appendULEB(b, uint32(len(s)))
	return append(b, s...)
}

func appendULEB(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}
