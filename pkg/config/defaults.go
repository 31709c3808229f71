package config

// Parameter names used throughout the plugin.
const (
	ParamLocalUserAttrib        = "local_user_attrib"
	ParamLocalUserSuffix        = "local_user_suffix"
	ParamLocalUserTakeLogin     = "local_user_take_login"
	ParamLocalUserShortExternal = "local_user_short_external"
	ParamLocalUserAuthMode      = "local_user_auth_mode"
	ParamExternalLoginPrefix    = "external_user_login_prefix"
	ParamExternalAuthMode       = "external_user_auth_mode"
	ParamExternalMatriculation  = "external_user_matrikulation"
	ParamResolveAggregation     = "resolve_aggregation"
	ParamLocalScope             = "local_scope"
	ParamEntitlementAttrib      = "entitlement_attrib"
	ParamEntitlementRoleIndex   = "entitlement_role_index"
	ParamEntitlementScopeIndex  = "entitlement_scope_index"
	ParamEntitlementLvnrIndex   = "entitlement_lvnr_index"
	ParamCheckVhbAccess         = "check_vhb_access"
	ParamEvaluatorRole          = "evaluator_role"
	ParamGuestRole              = "guest_role"
	ParamTestActivation         = "test_activation"
	ParamTestGivenName          = "test_given_name"
	ParamTestSurname            = "test_sn"
	ParamTestMail               = "test_mail"
	ParamTestPrincipalName      = "test_principal_name"
	ParamTestEntitlement        = "test_entitlement"
)

// DefaultCatalog builds the fixed parameter catalog of the plugin.
// Defaults reflect the vhb federation conventions; everything can be
// overridden on the settings screen.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		&Param{
			Name:        "auth_settings",
			Title:       "Authentication settings",
			Description: "How local accounts are found and created from the federation attributes.",
			Kind:        KindHead,
		},
		&Param{
			Name:        ParamLocalUserAttrib,
			Title:       "Login attribute",
			Description: "Shibboleth attribute that is probed for the local user suffix.",
			Kind:        KindText,
			Value:       "eduPersonPrincipalName",
		},
		&Param{
			Name:        ParamLocalUserSuffix,
			Title:       "Local user suffix",
			Description: "Suffix identifying users of the own institution, e.g. @uni-erlangen.de. A login ending with this suffix marks the caller as local.",
			Kind:        KindText,
			Value:       "",
		},
		&Param{
			Name:        ParamLocalUserTakeLogin,
			Title:       "Take local login",
			Description: "New local accounts use the short name before the suffix as login, made unique by appending .1, .2, ...",
			Kind:        KindBool,
			Value:       false,
		},
		&Param{
			Name:        ParamLocalUserShortExternal,
			Title:       "Short external account",
			Description: "Store the short name (without suffix) as external account key for local users. The key is the sole account matching criterion and must stay stable.",
			Kind:        KindBool,
			Value:       false,
		},
		&Param{
			Name:        ParamLocalUserAuthMode,
			Title:       "Auth mode of local users",
			Description: "Authentication mode assigned to newly created local accounts. Empty keeps the shibboleth default.",
			Kind:        KindText,
			Value:       "",
		},
		&Param{
			Name:        ParamExternalLoginPrefix,
			Title:       "External login prefix",
			Description: "Prefix for generated logins of external users. The login is prefix plus a sequence number and is renamed to prefix plus the internal id after creation. Empty uses the federation login.",
			Kind:        KindText,
			Value:       "",
		},
		&Param{
			Name:        ParamExternalAuthMode,
			Title:       "Auth mode of external users",
			Description: "Authentication mode assigned to newly created external accounts.",
			Kind:        KindText,
			Value:       "shibboleth",
		},
		&Param{
			Name:        ParamExternalMatriculation,
			Title:       "Derive matriculation",
			Description: "Take the matriculation number of external users from the numeric prefix of their @vhb.org login.",
			Kind:        KindBool,
			Value:       false,
		},
		&Param{
			Name:        ParamResolveAggregation,
			Title:       "Resolve attribute aggregation",
			Description: "Attributes may carry values of several identity providers joined by semicolon. When enabled the value at the index of the matched login is taken. When disabled, multiple values are treated as a configuration error.",
			Kind:        KindBool,
			Value:       false,
		},
		&Param{
			Name:        "entitle_settings",
			Title:       "Course assignment settings",
			Description: "How eduPersonEntitlement values such as urn:mace:vhb.org:entitlement:lms:student:uni-erlangen.de:LV_463_1227_1_67_1 are matched to registered courses.",
			Kind:        KindHead,
		},
		&Param{
			Name:        ParamLocalScope,
			Title:       "Local scope",
			Description: "Scope of the own institution inside the entitlement, e.g. uni-erlangen.de. Only entitlements with this scope are assigned.",
			Kind:        KindText,
			Value:       "",
		},
		&Param{
			Name:        ParamEntitlementAttrib,
			Title:       "Entitlement attribute",
			Description: "Shibboleth attribute carrying the semicolon separated entitlement list.",
			Kind:        KindText,
			Value:       "eduPersonEntitlement",
		},
		&Param{
			Name:        ParamEntitlementRoleIndex,
			Title:       "Role segment index",
			Description: "Position of the role inside the colon separated entitlement.",
			Kind:        KindInt,
			Value:       int64(5),
		},
		&Param{
			Name:        ParamEntitlementScopeIndex,
			Title:       "Scope segment index",
			Description: "Position of the scope inside the colon separated entitlement.",
			Kind:        KindInt,
			Value:       int64(6),
		},
		&Param{
			Name:        ParamEntitlementLvnrIndex,
			Title:       "Course number segment index",
			Description: "Position of the course number inside the colon separated entitlement.",
			Kind:        KindInt,
			Value:       int64(7),
		},
		&Param{
			Name:        ParamCheckVhbAccess,
			Title:       "Check platform access",
			Description: "Require the vhb-access marker in the entitlement. Callers without it are rejected, as are new accounts without any matching course entitlement.",
			Kind:        KindBool,
			Value:       false,
		},
		&Param{
			Name:        ParamEvaluatorRole,
			Title:       "Evaluator role",
			Description: "Glob pattern over course role titles. Callers with the vhb role 'evaluation' are assigned to the first matching role. ? matches one character, * any run.",
			Kind:        KindText,
			Value:       "Kursgast*",
		},
		&Param{
			Name:        ParamGuestRole,
			Title:       "Guest role",
			Description: "Glob pattern over course role titles for callers with the vhb role 'appr'.",
			Kind:        KindText,
			Value:       "Kursgast*",
		},
		&Param{
			Name:        "test_settings",
			Title:       "Test settings",
			Description: "Fixed attribute values for non-production verification. Active when the configured activation value is passed as 'testsource' query parameter.",
			Kind:        KindHead,
		},
		&Param{
			Name:        ParamTestActivation,
			Title:       "Test activation",
			Description: "Value of the 'testsource' query parameter that switches the test attributes on. Empty disables the override.",
			Kind:        KindText,
			Value:       "",
		},
		&Param{Name: ParamTestGivenName, Title: "Test given name", Kind: KindText, Value: ""},
		&Param{Name: ParamTestSurname, Title: "Test surname", Kind: KindText, Value: ""},
		&Param{Name: ParamTestMail, Title: "Test mail", Kind: KindText, Value: ""},
		&Param{Name: ParamTestPrincipalName, Title: "Test principal name", Kind: KindText, Value: ""},
		&Param{Name: ParamTestEntitlement, Title: "Test entitlement", Kind: KindText, Value: ""},
	)
}
