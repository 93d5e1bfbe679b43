package tripdesk

import (
	"context"
	"strings"
)

// TranslationService exposes locale-aware translation for banner and toast strings.
// Implementations may be backed by go-i18n or a CMS; the built-in catalog is the fallback.
type TranslationService interface {
	Translate(ctx context.Context, key, locale string, args map[string]any) (string, error)
}

// Message keys understood by the built-in catalog.
const (
	MsgBannerFallback   = "banner.fallback"
	MsgBannerConnected  = "banner.connected"
	MsgErrNetwork       = "error.network"
	MsgErrUnauthorized  = "error.unauthorized"
	MsgErrValidation    = "error.validation"
	MsgErrConflict      = "error.conflict"
	MsgErrNotFound      = "error.not_found"
	MsgErrServer        = "error.server"
	MsgErrIllegalAction = "error.illegal_transition"
	MsgErrGeneric       = "error.generic"
	MsgTransitionDone   = "toast.transition_done"
	MsgCreated          = "toast.created"
	MsgDeleted          = "toast.deleted"
)

var catalog = map[string]map[string]string{
	MsgBannerFallback: {
		"default": "You are not connected to a real API. Showing sample data.",
		"ar":      "أنت غير متصل بواجهة برمجة حقيقية. يتم عرض بيانات تجريبية.",
	},
	MsgBannerConnected: {
		"default": "Connected to the live API.",
		"ar":      "متصل بواجهة البرمجة الحية.",
	},
	MsgErrNetwork: {
		"default": "The server could not be reached. Check your connection and try again.",
		"ar":      "تعذر الوصول إلى الخادم. تحقق من الاتصال وحاول مرة أخرى.",
	},
	MsgErrUnauthorized: {
		"default": "Your session has expired. Please sign in again.",
		"ar":      "انتهت صلاحية الجلسة. يرجى تسجيل الدخول مرة أخرى.",
	},
	MsgErrValidation: {
		"default": "Some fields are invalid.",
		"ar":      "بعض الحقول غير صالحة.",
	},
	MsgErrConflict: {
		"default": "The request conflicts with existing data.",
		"ar":      "الطلب يتعارض مع بيانات موجودة.",
	},
	MsgErrNotFound: {
		"default": "The record no longer exists.",
		"ar":      "السجل لم يعد موجودا.",
	},
	MsgErrServer: {
		"default": "The server failed to process the request.",
		"ar":      "فشل الخادم في معالجة الطلب.",
	},
	MsgErrIllegalAction: {
		"default": "This action is not available for the record's current status.",
		"ar":      "هذا الإجراء غير متاح للحالة الحالية للسجل.",
	},
	MsgErrGeneric: {
		"default": "Something went wrong.",
		"ar":      "حدث خطأ ما.",
	},
	MsgTransitionDone: {
		"default": "Status updated.",
		"ar":      "تم تحديث الحالة.",
	},
	MsgCreated: {
		"default": "Record created.",
		"ar":      "تم إنشاء السجل.",
	},
	MsgDeleted: {
		"default": "Record deleted.",
		"ar":      "تم حذف السجل.",
	},
}

// Message returns the catalog text for key in locale.
func Message(key, locale string) string {
	return ResolveLocalizedValue(catalog[key], locale, key)
}

// Banner returns the connectivity banner for a resolution.
func Banner(usingFallback bool, locale string) string {
	if usingFallback {
		return Message(MsgBannerFallback, locale)
	}
	return Message(MsgBannerConnected, locale)
}

// ResolveLocalizedValue selects the best translation for the provided locale and falls back to the supplied value.
// Keys are matched case-insensitively, and language-region pairs (`ar-sa`) fall back to their
// base language (`ar`) when present.
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	for _, candidate := range localeCandidates(locale) {
		for key, value := range values {
			if strings.EqualFold(key, candidate) && value != "" {
				return value
			}
		}
	}
	return fallback
}

func localeCandidates(locale string) []string {
	locale = normalizeLocale(locale)
	if locale == "" {
		return []string{"default"}
	}
	candidates := []string{locale}
	if idx := strings.IndexAny(locale, "-_"); idx > 0 {
		candidates = append(candidates, locale[:idx])
	}
	return append(candidates, "default")
}

func normalizeLocale(locale string) string {
	return strings.TrimSpace(strings.ToLower(locale))
}

func translateOrFallback(ctx context.Context, svc TranslationService, key, locale string, params map[string]any) string {
	if svc != nil {
		if translated, err := svc.Translate(ctx, key, locale, params); err == nil && translated != "" {
			return translated
		}
	}
	return Message(key, locale)
}
