package nlp

import (
	"regexp"

	"domo/internal/domain"
)

// DefaultRules is the built-in bilingual (es/en) intent registry. Patterns are
// written against normalized text, so accented forms appear accent-free and
// regional variants ("encendé", "prendé") collapse into their stripped
// spelling. Registration order matters: it is the classifier's final
// tie-breaker.
func DefaultRules() []PatternRule {
	return []PatternRule{
		rule("turn_on.direct.es", domain.IntentTurnOn, 0.90, "es",
			`\b(enciende|encender|encienda|encende|prende|prender|prenda)\b`,
			`\b(activa|activar|active)\b`,
			`\b(inicia|iniciar|inicie)\b`,
			`\b(arranca|arrancar|arranque)\b`,
			`\b(conecta|conectar|conecte)\b`,
			`\bilumina(r|me)?\b`,
		),
		rule("turn_on.subjunctive.es", domain.IntentTurnOn, 0.85, "es",
			`\b(enciendas|encendas|prendas|actives|inicies|arranques|conectes)\b`,
		),
		rule("turn_on.colloquial.es", domain.IntentTurnOn, 0.82, "es",
			`\bpon(er|go|ga|le|me)?\s+(la\s+)?(luz|lampara)\b`,
			`\bpon(er)?\s+en\s+marcha\b`,
			`\b(que\s+)?se\s+encienda\b`,
			`\b(quiero|necesito|deseo)\s+(que\s+)?(se\s+)?encienda\b`,
			`\bda(r|me|le)?\s+(luz|energia|corriente)\b`,
			`\becha(r)?\s+luz\b`,
		),
		rule("turn_off.direct.es", domain.IntentTurnOff, 0.90, "es",
			`\b(apaga|apagar|apague)\b`,
			`\b(desactiva|desactivar|desactive)\b`,
			`\b(deten|detener|detenga)\b`,
			`\b(desconecta|desconectar|desconecte)\b`,
			`\b(corta|cortar|corte)\s+(la\s+)?(luz|energia|corriente)\b`,
			`\bpara\s+(el|la)\s`,
		),
		rule("turn_off.subjunctive.es", domain.IntentTurnOff, 0.85, "es",
			`\b(apagues|desactives|detengas|pares|desconectes|cortes)\b`,
		),
		rule("turn_off.colloquial.es", domain.IntentTurnOff, 0.82, "es",
			`\b(quita|quitar|quite)\s+(la\s+)?(luz|energia)\b`,
			`\b(que\s+)?se\s+apague\b`,
			`\b(quiero|necesito|deseo)\s+(que\s+)?(se\s+)?apague\b`,
		),
		rule("open.direct.es", domain.IntentOpen, 0.90, "es",
			`\b(abre|abrir|abra|abri|abrime)\b`,
			`\b(despeja|despejar|despeje)\b`,
			`\b(descorre|descorrer|descorra)\b`,
			`\b(levanta|levantar|levante)\b`,
			`\b(sube|subir|suba)\s+(la|el)\s+(persiana|cortina)\b`,
			`\b(destapa|destapar|destape|destraba|destrabar)\b`,
		),
		rule("open.subjunctive.es", domain.IntentOpen, 0.85, "es",
			`\b(abras|despejes|descorras|levantes|subas|destapes)\b`,
		),
		rule("open.colloquial.es", domain.IntentOpen, 0.82, "es",
			`\b(que\s+)?se\s+abra\b`,
			`\b(quiero|necesito|deseo)\s+(que\s+)?(se\s+)?abra\b`,
			`\bdeja(r)?\s+(abierto|abierta)\b`,
		),
		rule("close.direct.es", domain.IntentClose, 0.90, "es",
			`\b(cierra|cerrar|cierre|cerra|cierrame)\b`,
			`\b(baja|bajar|baje)\s+(la|el)\s+(persiana|cortina|toldo)\b`,
			`\b(corre|correr|corra)\s+(la|el)\s+(cortina|persiana)\b`,
			`\b(tapa|tapar|tape)\b`,
			`\b(bloquea|bloquear|bloquee)\b`,
			`\btraba(r|me|le)?\b`,
		),
		rule("close.subjunctive.es", domain.IntentClose, 0.85, "es",
			`\b(cierres|corras|bajes|tapes|bloquees)\b`,
		),
		rule("close.colloquial.es", domain.IntentClose, 0.82, "es",
			`\b(que\s+)?se\s+cierre\b`,
			`\b(quiero|necesito|deseo)\s+(que\s+)?(se\s+)?cierre\b`,
			`\bdeja(r)?\s+(cerrado|cerrada)\b`,
		),
		rule("status.question.es", domain.IntentStatus, 0.85, "es",
			`\b(esta|estan)\s+(encendid[oa]s?|apagad[oa]s?|abiert[oa]s?|cerrad[oa]s?|activad[oa]s?|funcionando)\b`,
			`\bcomo\s+(esta|estan)\b`,
			`\bque\s+tal\s+(esta|estan)\b`,
			`\bcual\s+es\s+(el\s+)?estado\b`,
		),
		rule("status.query.es", domain.IntentStatus, 0.82, "es",
			`\b(estado|status|situacion)\s+(de|del|de\s+la)\b`,
			`\b(dime|decime|muestrame|dame)\s+(el\s+)?(estado|status)\b`,
			`\b(verifica|verificar|revisa|revisar|checa|chequea|consulta|consultar)\b`,
			`\bque\s+pasa\s+con\b`,
			`\b(funciona|funcionando|anda|andando)\b`,
			`\bfijate\s+(si|como)\b`,
		),
		rule("toggle.es", domain.IntentToggle, 0.85, "es",
			`\b(alterna|alternar|alterne)\b`,
			`\b(cambia|cambiar|cambie)\s+(el\s+)?(estado|modo)\b`,
			`\b(invierte|invertir|invierta)\s+(el\s+)?estado\b`,
		),
		rule("turn_on.en", domain.IntentTurnOn, 0.88, "en",
			`\b(turn|switch|power)\s+on\b`,
			`\b(start|enable|activate)\b`,
			`\blight\s+up\b`,
		),
		rule("turn_off.en", domain.IntentTurnOff, 0.88, "en",
			`\b(turn|switch|power)\s+off\b`,
			`\b(stop|disable|deactivate)\b`,
			`\bshut\s+(off|down)\b`,
		),
		rule("open.en", domain.IntentOpen, 0.88, "en",
			`\b(open|unlock|raise)\b`,
			`\b(lift|pull|roll)\s+up\b`,
			`\bslide\s+open\b`,
		),
		rule("close.en", domain.IntentClose, 0.88, "en",
			`\b(close|shut|lock)\b`,
			`\b(pull|roll)\s+down\b`,
			`\blower\b`,
			`\bslide\s+(shut|closed?)\b`,
		),
		rule("status.en", domain.IntentStatus, 0.85, "en",
			`\b(is|are)\s+(the\s+)?\w+\s+(on|off|open|closed)\b`,
			`\bwhat\s+is\s+the\s+(status|state)\b`,
			`\bwhats\s+the\s+(status|state)\b`,
			`\b(check|verify|show)\s+(the\s+)?(status|state)\b`,
			`\b(status|state)\s+(of|for)\b`,
			`\bhow\s+is\s+the\b`,
			`\bhows\s+the\b`,
		),
		rule("toggle.en", domain.IntentToggle, 0.85, "en",
			`\b(toggle|flip)\b`,
			`\bchange\s+(the\s+)?(state|mode)\b`,
			`\bswitchear?\b`,
		),
	}
}

func rule(id string, intent domain.IntentKind, base float64, locale string, exprs ...string) PatternRule {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		compiled = append(compiled, regexp.MustCompile(e))
	}
	return PatternRule{ID: id, Intent: intent, Exprs: compiled, Base: base, Locale: locale}
}
