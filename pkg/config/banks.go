package config

import "nexusgeometry/internal/models"

// lokiBanks is the LoKI calibration data, in millimetres.
func lokiBanks() map[int]models.BankRecord {
	return map[int]models.BankRecord{
		0: {
			A:        []models.Point{{-500, -781, 5012.5}, {-500, -799.84, 5091.28}, {-500, 781, 5012.5}, {-500, 762.16, 5091.28}},
			B:        []models.Point{{500, -781, 5012.5}, {500, -799.84, 5091.28}, {500, 781, 5012.5}, {500, 762.16, 5091.28}},
			NumTubes: 224,
		},
		1: {
			A:        []models.Point{{-500, -710.24, 2899.18}, {-500, -699.24, 2979.43}, {-500, -286.34, 2941.42}, {-500, -275.35, 3021.67}},
			B:        []models.Point{{500, -710.24, 2899.18}, {500, -699.24, 2979.43}, {500, -286.34, 2941.42}, {500, -275.35, 3021.67}},
			NumTubes: 64,
		},
		2: {
			A:        []models.Point{{-535.94, -250, 3328.75}, {-523.26, -250, 3408.75}, {-224.49, -250, 3353.18}, {-211.82, -250, 3433.19}},
			B:        []models.Point{{-535.94, 250, 3328.75}, {-523.26, 250, 3408.75}, {-224.49, 250, 3353.18}, {-211.82, 250, 3433.19}},
			NumTubes: 48,
		},
		3: {
			A:        []models.Point{{-500, 286.33, 2941.34}, {-500, 275.34, 3021.59}, {-500, 710.23, 2899.11}, {-500, 699.24, 2979.36}},
			B:        []models.Point{{500, 286.33, 2941.34}, {500, 275.34, 3021.59}, {500, 710.23, 2899.11}, {500, 699.24, 2979.36}},
			NumTubes: 64,
		},
		4: {
			A:        []models.Point{{224.49, -250, 3353.11}, {211.82, -250, 3433.11}, {535.93, -250, 3328.67}, {523.26, -250, 3408.67}},
			B:        []models.Point{{224.49, 250, 3353.11}, {211.82, 250, 3433.11}, {535.93, 250, 3328.67}, {523.26, 250, 3408.67}},
			NumTubes: 48,
		},
		5: {
			A:        []models.Point{{-700, -1096.67, 1051.39}, {-700, -1102.32, 1132.19}, {-700, -365.34, 1281.9}, {-700, -370.99, 1362.7}},
			B:        []models.Point{{500, -1096.67, 1051.39}, {500, -1102.32, 1132.19}, {500, -365.34, 1281.9}, {500, -370.99, 1362.7}},
			NumTubes: 112,
		},
		6: {
			A:        []models.Point{{-1191.15, -585, 1509.59}, {-1187.05, -585, 1590.49}, {-325.76, -585, 1671.47}, {-321.66, -585, 1752.37}},
			B:        []models.Point{{-1191.15, 615, 1509.59}, {-1187.05, 615, 1590.49}, {-325.76, 615, 1671.47}, {-321.66, 615, 1752.37}},
			NumTubes: 128,
		},
		7: {
			A:        []models.Point{{-500, 365.36, 1281.97}, {-500, 371.01, 1362.77}, {-500, 880, 1119.78}, {-500, 885.65, 1200.58}},
			B:        []models.Point{{700, 365.36, 1281.97}, {700, 371.01, 1362.77}, {700, 880, 1119.78}, {700, 885.65, 1200.58}},
			NumTubes: 80,
		},
		8: {
			A:        []models.Point{{325.62, -650, 1670.71}, {321.52, -650, 1751.61}, {1191.14, -650, 1509.52}, {1187.04, -650, 1590.41}},
			B:        []models.Point{{325.62, 550, 1670.71}, {321.52, 550, 1751.61}, {1191.14, 550, 1509.52}, {1187.04, 550, 1590.41}},
			NumTubes: 128,
		},
	}
}
