package shared

// Profile identifies a jurisdiction-specific document format and its transport.
type Profile string

const (
	ProfileROCIUS       Profile = "ro_cius"
	ProfileROETransport Profile = "ro_etransport"
	ProfilePLJPK        Profile = "pl_jpk"
	ProfileFRCIUS       Profile = "fr_cius"
	ProfileJOUBL        Profile = "jo_ubl"
	ProfileIDQRIS       Profile = "id_qris"
	ProfileAUTPAR       Profile = "au_tpar"
)

// Profiles lists every supported profile.
var Profiles = []Profile{
	ProfileROCIUS, ProfileROETransport, ProfilePLJPK, ProfileFRCIUS, ProfileJOUBL, ProfileIDQRIS, ProfileAUTPAR,
}

func (p Profile) Valid() bool {
	for _, known := range Profiles {
		if p == known {
			return true
		}
	}
	return false
}

// IsStock reports whether documents of this profile follow the stock_* state family.
func (p Profile) IsStock() bool {
	return p == ProfileROETransport
}

// IsAggregated reports whether the profile reports aggregation flows rather than single records.
func (p Profile) IsAggregated() bool {
	return p == ProfileROETransport || p == ProfilePLJPK || p == ProfileAUTPAR
}

// Country returns the ISO country code of the issuing authority.
func (p Profile) Country() string {
	switch p {
	case ProfileROCIUS, ProfileROETransport:
		return "RO"
	case ProfilePLJPK:
		return "PL"
	case ProfileFRCIUS:
		return "FR"
	case ProfileJOUBL:
		return "JO"
	case ProfileIDQRIS:
		return "ID"
	case ProfileAUTPAR:
		return "AU"
	}
	return ""
}

// Action is what a submission request asks for.
type Action string

const (
	ActionSend   Action = "send"
	ActionAmend  Action = "amend"
	ActionCancel Action = "cancel"
	ActionQR     Action = "qr"

	// ActionRectify replaces a sent periodic report as a whole.
	ActionRectify Action = "rectify"
)

func (a Action) Valid() bool {
	switch a {
	case ActionSend, ActionAmend, ActionCancel, ActionQR, ActionRectify:
		return true
	}
	return false
}

// TransmissionType tags a periodic submission as initial, modification,
// complement or rectification.
type TransmissionType string

const (
	TransmissionInitial      TransmissionType = "IN"
	TransmissionModification TransmissionType = "MO"
	TransmissionComplement   TransmissionType = "CO"

	// TransmissionRectification replaces the latest report sent for a period.
	TransmissionRectification TransmissionType = "RE"
)
