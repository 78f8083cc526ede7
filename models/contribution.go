// models/contribution.go
package models

// Contribution is one row of the FEC individual contributions file (itcont.txt).
// The file has no header row, so csv tags name the positional FEC columns.
type Contribution struct {
	CommitteeID       string `csv:"CMTE_ID" json:"cmte_id"`
	AmendmentInd      string `csv:"AMNDT_IND" json:"amndt_ind,omitempty"`
	ReportType        string `csv:"RPT_TP" json:"rpt_tp,omitempty"`
	TransactionPGI    string `csv:"TRANSACTION_PGI" json:"transaction_pgi"` // Primary/General indicator
	ImageNum          string `csv:"IMAGE_NUM" json:"image_num,omitempty"`
	TransactionType   string `csv:"TRANSACTION_TP" json:"transaction_tp,omitempty"`
	EntityType        string `csv:"ENTITY_TP" json:"entity_tp"`
	Name              string `csv:"NAME" json:"name,omitempty"`
	City              string `csv:"CITY" json:"city"`
	State             string `csv:"STATE" json:"state"`
	ZipCode           string `csv:"ZIP_CODE" json:"zip_code,omitempty"`
	Employer          string `csv:"EMPLOYER" json:"employer,omitempty"`
	Occupation        string `csv:"OCCUPATION" json:"occupation,omitempty"`
	TransactionDate   string `csv:"TRANSACTION_DT" json:"transaction_dt"` // MMDDYYYY
	TransactionAmount string `csv:"TRANSACTION_AMT" json:"transaction_amt"`
	OtherID           string `csv:"OTHER_ID" json:"other_id,omitempty"`
	TransactionID     string `csv:"TRAN_ID" json:"tran_id,omitempty"`
	FileNum           string `csv:"FILE_NUM" json:"file_num,omitempty"`
	MemoCode          string `csv:"MEMO_CD" json:"memo_cd,omitempty"`
	MemoText          string `csv:"MEMO_TEXT" json:"memo_text,omitempty"`
	SubID             string `csv:"SUB_ID" json:"sub_id,omitempty"`
}

// ContributionHeader is the positional column layout of itcont.txt.
var ContributionHeader = []string{
	"CMTE_ID",
	"AMNDT_IND",
	"RPT_TP",
	"TRANSACTION_PGI",
	"IMAGE_NUM",
	"TRANSACTION_TP",
	"ENTITY_TP",
	"NAME",
	"CITY",
	"STATE",
	"ZIP_CODE",
	"EMPLOYER",
	"OCCUPATION",
	"TRANSACTION_DT",
	"TRANSACTION_AMT",
	"OTHER_ID",
	"TRAN_ID",
	"FILE_NUM",
	"MEMO_CD",
	"MEMO_TEXT",
	"SUB_ID",
}

// ContributionColumns is the subset of columns kept in itcont.parquet, in output order.
var ContributionColumns = []string{
	"CMTE_ID",
	"TRANSACTION_PGI",
	"ENTITY_TP",
	"CITY",
	"STATE",
	"TRANSACTION_DT",
	"TRANSACTION_AMT",
}
