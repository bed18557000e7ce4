package wizard

import "skillwallet/internal/media"

// The three flows the SkillWallet screens instantiate. They differ only in
// capture kind and upload destination; the state machine is shared.

// WorkProofFlow captures a photo (or uploaded video) of finished work for
// the work-evidence slot of a work-proof claim.
func WorkProofFlow() Flow {
	return Flow{
		Name:           "work_proof",
		Kind:           media.Photo,
		DestinationTag: "work_evidence",
		Facing:         media.FacingEnvironment,
	}
}

// VoiceStoryFlow records the worker's spoken story for a work-proof claim.
func VoiceStoryFlow() Flow {
	return Flow{
		Name:           "voice_story",
		Kind:           media.Audio,
		DestinationTag: "work_story",
	}
}

// TextStoryFlow is the typed alternative to VoiceStoryFlow.
func TextStoryFlow() Flow {
	return Flow{
		Name:           "text_story",
		Kind:           media.Text,
		DestinationTag: "work_story",
	}
}

// IdentityDocumentFlow scans one identity document. docType is the backend's
// document slot (aadhaar, pan_card, voter_id, driving_license, ration_card);
// tier classification is the backend's business, opaque here.
func IdentityDocumentFlow(docType string) Flow {
	return Flow{
		Name:           "identity_" + docType,
		Kind:           media.Photo,
		DestinationTag: docType,
		Facing:         media.FacingEnvironment,
	}
}
