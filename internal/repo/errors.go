package repo

import "errors"

// ErrNotFound indica ausência de registro para a consulta feita.
var ErrNotFound = errors.New("registro não encontrado")
