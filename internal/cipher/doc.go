// Package cipher implements the classical cipher codecs that cryptbreak
// attacks: monoalphabetic substitution and columnar transposition.
//
// # Codecs
//
// Substitution keys are Mapping values, fixed-size bijections from cipher
// letter to plain letter:
//
//	m, _ := cipher.ParseMapping("QWERTYUIOPASDFGHJKLZXCVBNM")
//	plain := m.Decrypt("ITSSG, VGKSR!")
//
// Transposition keys are Key values, permutations of the column indices. Key
// value k at column c means column c is the k-th column read out of the grid:
//
//	ct, _ := cipher.EncryptColumnar("HELLOWORLD", cipher.Key{2, 0, 1})
//	pt, _ := cipher.DecryptColumnar(ct, cipher.Key{2, 0, 1})
//
// When the text length is not a multiple of the key length the trailing
// columns (by natural index) are one row shorter.
//
// # Operations
//
// The codecs are also exposed as named operations in a registry so they can
// be chained:
//
//	pipeline := &cipher.Pipeline{
//	    Operations: []cipher.OperationConfig{
//	        {Name: "substitution_encrypt", Parameters: map[string]interface{}{"mapping": key}},
//	        {Name: "columnar_encrypt", Parameters: map[string]interface{}{"key": "2,0,1"}},
//	    },
//	    Reversible: true,
//	}
//
// # Detection
//
// Detector guesses whether a ciphertext is a transposition (letter
// distribution intact) or a substitution (distribution permuted) from its
// chi-squared distance to English and its index of coincidence.
//
// # Thread Safety
//
// Mapping and Key are plain values. Columnar holds a scratch layout and must
// not be shared between goroutines. The operation registry is safe for
// concurrent use.
package cipher
