// README: Default barangay distance table (km from the poblacion).
package pricing

// DefaultTable returns the built-in barangay table. Callers that need another
// tenant's data build their own with NewTable.
func DefaultTable() Table {
	return NewTable([]Entry{
		{"Adia Bitaog", 24},
		{"Anonangin", 31},
		{"Bagong Buhay", 0.8},
		{"Bamban", 6.8},
		{"Bantad", 20},
		{"Batong Dalig", 6.5},
		{"Biga", 15},
		{"Binambang", 12},
		{"Buensuceso", 4.7},
		{"Bungahan", 12},
		{"Butaguin", 3.2},
		{"Calumangin", 0.75},
		{"Camohaguin", 8.5},
		{"Casasahan Ibaba", 22},
		{"Casasahan Ilaya", 27},
		{"Cawayan", 21},
		{"Gayagayaan", 22},
		{"Gitnang Barrio", 11},
		{"Hardinan", 8.7},
		{"Inaclagan", 7.9},
		{"Inagbuhan Ilaya", 5.9},
		{"Hagakhakin", 10},
		{"Labnig", 7.4},
		{"Laguna", 12},
		{"Lagyo", 1.9},
		{"Mabini", 1.2},
		{"Mabunga", 15},
		{"Malabtog", 7.8},
		{"Manlayaan", 4.1},
		{"Marcelo H. del Pilar", 12},
		{"Mataas na Bundok", 9.8},
		{"Maunlad", 0.4},
		{"Pagsabangan", 14},
		{"Panikihan", 5.1},
		{"Peñafrancia", 0.95},
		{"Pipisik", 0.5},
		{"Progreso", 3.7},
		{"Rizal", 0.5},
		{"Rosario", 3.0},
		{"San Agustin", 7.4},
		{"San Diego (Población)", 0.22},
		{"San Diego (Bukid)", 16},
		{"San Isidro Kanluran", 19},
		{"San Isidro Silangan", 9.8},
		{"San Juan de Jesus", 5.3},
		{"San Vicente", 13},
		{"Sastre", 6.4},
		{"Tabing Dagat", 0.22},
		{"Tumayan", 13},
		{"Villa Arcaya", 6.8},
		{"Villa Bota", 4.6},
		{"Villa Fuerte", 15},
		{"Villa Mendoza", 12},
		{"Villa Nava", 1.4},
		{"Villa Padua", 6.3},
		{"Villa Perez", 9.5},
		{"Villa Principe", 7.7},
		{"Villa Tañada", 18},
		{"Villa Victoria", 12},
	})
}
