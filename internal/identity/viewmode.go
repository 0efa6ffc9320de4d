package identity

import "strings"

// ViewMode é a superfície de navegação que o usuário opera no painel.
type ViewMode string

const (
	ModoMaster    ViewMode = "master"
	ModoGestor    ViewMode = "gestor"
	ModoPrestador ViewMode = "prestador"
	ModoUsuario   ViewMode = "usuario"
)

// ParseViewMode normaliza o nome do modo; vazio ou desconhecido retorna false.
func ParseViewMode(value string) (ViewMode, bool) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(value))) {
	case ModoMaster:
		return ModoMaster, true
	case ModoGestor:
		return ModoGestor, true
	case ModoPrestador:
		return ModoPrestador, true
	case ModoUsuario:
		return ModoUsuario, true
	default:
		return "", false
	}
}

// DefaultMode resolve o modo inicial do ator: master cai no modo master,
// quem tem perfil de prestador (e não é master nem gestor) cai no modo
// prestador, o resto no modo usuário. Gestor nunca é default automático:
// só entra por escolha explícita.
func DefaultMode(actor Actor) ViewMode {
	if actor.Papel == PapelMaster {
		return ModoMaster
	}
	if actor.EhPrestador() && actor.Papel != PapelGestor {
		return ModoPrestador
	}
	return ModoUsuario
}

// EntitledModes recalcula, a cada carga, o conjunto de modos que o ator
// pode assumir. A escolha persistida só vale dentro deste conjunto.
func EntitledModes(actor Actor) []ViewMode {
	modes := []ViewMode{ModoUsuario}
	if actor.EhPrestador() {
		modes = append(modes, ModoPrestador)
	}
	if actor.Papel >= PapelGestor {
		modes = append(modes, ModoGestor)
	}
	if actor.Papel == PapelMaster {
		modes = append(modes, ModoMaster)
	}
	return modes
}

// Entitled indica se o ator pode operar no modo informado.
func Entitled(actor Actor, mode ViewMode) bool {
	for _, m := range EntitledModes(actor) {
		if m == mode {
			return true
		}
	}
	return false
}
