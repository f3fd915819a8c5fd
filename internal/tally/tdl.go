package tally

import "fmt"

// collectionTypes maps a reference-entity kind to the Tally collection type
// that exports it. Note the server spells godowns "GoDown".
var collectionTypes = map[string]string{
	"Group":         "Group",
	"Ledger":        "Ledger",
	"StockItem":     "StockItem",
	"VoucherType":   "VoucherType",
	"Godown":        "GoDown",
	"StockCategory": "StockCategory",
	"StockGroup":    "StockGroup",
	"Unit":          "Unit",
	"CostCategory":  "CostCategory",
	"CostCentre":    "CostCentre",
}

// voucherEnvelope builds the TDL request that walks every non-cancelled,
// non-optional voucher with its ledger and inventory entries. The server
// flattens the walk into a single tag sequence; parent/child correlation
// survives only as arrival order.
func voucherEnvelope(company string) string {
	return fmt.Sprintf(`<ENVELOPE>
  <HEADER>
    <VERSION>1</VERSION>
    <TALLYREQUEST>Export</TALLYREQUEST>
    <TYPE>Data</TYPE>
    <ID>VoucherComprehensiveWalk</ID>
  </HEADER>
  <BODY>
    <DESC>
      <STATICVARIABLES>
        <SVEXPORTFORMAT>XML (Data Interchange)</SVEXPORTFORMAT>
        <SVCOMPANYNAME>%[1]s</SVCOMPANYNAME>
      </STATICVARIABLES>
      <TDL>
        <TDLMESSAGE>
          <REPORT NAME="VoucherComprehensiveWalk">
            <FORMS>VoucherComprehensiveWalkForm</FORMS>
          </REPORT>
          <FORM NAME="VoucherComprehensiveWalkForm">
            <PARTS>VoucherComprehensiveWalkPart</PARTS>
          </FORM>
          <PART NAME="VoucherComprehensiveWalkPart">
            <LINES>VoucherComprehensiveWalkLine</LINES>
            <REPEAT>VoucherComprehensiveWalkLine : VoucherCollection</REPEAT>
            <SCROLLED>Vertical</SCROLLED>
          </PART>
          <LINE NAME="VoucherComprehensiveWalkLine">
            <FIELDS>voucher_amount,voucher_date,voucher_id,voucher_narration,voucher_party_name,voucher_reference,voucher_voucher_number,voucher_voucher_type,trn_inventoryentries_amount,trn_inventoryentries_id,trn_inventoryentries_quantity,trn_inventoryentries_rate,trn_inventoryentries_stockitem_name,trn_inventoryentries_godown_name,trn_inventoryentries_tracking_number,trn_ledgerentries_amount,trn_ledgerentries_id,trn_ledgerentries_is_debit,trn_ledgerentries_ledger_name</FIELDS>
          </LINE>

          <FIELD NAME="voucher_amount"><SET>$Amount</SET></FIELD>
          <FIELD NAME="voucher_date"><SET>$Date</SET></FIELD>
          <FIELD NAME="voucher_id"><SET>$GUID</SET></FIELD>
          <FIELD NAME="voucher_narration"><SET>$Narration</SET></FIELD>
          <FIELD NAME="voucher_party_name"><SET>$PartyLedgerName</SET></FIELD>
          <FIELD NAME="voucher_reference"><SET>$Reference</SET></FIELD>
          <FIELD NAME="voucher_voucher_number"><SET>$VoucherNumber</SET></FIELD>
          <FIELD NAME="voucher_voucher_type"><SET>$VoucherTypeName</SET></FIELD>

          <FIELD NAME="trn_inventoryentries_amount"><SET>$Amount</SET></FIELD>
          <FIELD NAME="trn_inventoryentries_id"><SET>$GUID</SET></FIELD>
          <FIELD NAME="trn_inventoryentries_quantity"><SET>$BilledQty</SET></FIELD>
          <FIELD NAME="trn_inventoryentries_rate"><SET>$Rate</SET></FIELD>
          <FIELD NAME="trn_inventoryentries_stockitem_name"><SET>$StockItemName</SET></FIELD>
          <FIELD NAME="trn_inventoryentries_godown_name"><SET>$GodownName</SET></FIELD>
          <FIELD NAME="trn_inventoryentries_tracking_number"><SET>$TrackingNumber</SET></FIELD>

          <FIELD NAME="trn_ledgerentries_amount"><SET>$Amount</SET></FIELD>
          <FIELD NAME="trn_ledgerentries_id"><SET>$GUID</SET></FIELD>
          <FIELD NAME="trn_ledgerentries_is_debit"><SET>$IsDebit</SET></FIELD>
          <FIELD NAME="trn_ledgerentries_ledger_name"><SET>$LedgerName</SET></FIELD>

          <COLLECTION NAME="VoucherCollection">
            <TYPE>Voucher</TYPE>
            <CHILDOF>$$VchTypeDayBook</CHILDOF>

            <FETCH>GUID</FETCH>
            <FETCH>VoucherNumber</FETCH>
            <FETCH>VoucherTypeName</FETCH>
            <FETCH>Date</FETCH>
            <FETCH>Amount</FETCH>
            <FETCH>Reference</FETCH>
            <FETCH>Narration</FETCH>
            <FETCH>PartyLedgerName</FETCH>
            <FETCH>IsCancelled</FETCH>
            <FETCH>IsOptional</FETCH>

            <WALK>AllInventoryEntries</WALK>
            <WALK>AllLedgerEntries</WALK>

            <FILTER>NotCancelled</FILTER>
            <FILTER>NotOptional</FILTER>
          </COLLECTION>

          <SYSTEM TYPE="Formulae" NAME="NotCancelled">NOT $IsCancelled</SYSTEM>
          <SYSTEM TYPE="Formulae" NAME="NotOptional">NOT $IsOptional</SYSTEM>
        </TDLMESSAGE>
      </TDL>
    </DESC>
  </BODY>
</ENVELOPE>`, company)
}

// masterEnvelope builds the TDL request exporting one reference-entity
// collection with the five master fields.
func masterEnvelope(kind, collectionType, company string) string {
	return fmt.Sprintf(`<ENVELOPE>
  <HEADER>
    <VERSION>1</VERSION>
    <TALLYREQUEST>Export</TALLYREQUEST>
    <TYPE>Data</TYPE>
    <ID>%[1]sExport</ID>
  </HEADER>
  <BODY>
    <DESC>
      <STATICVARIABLES>
        <SVEXPORTFORMAT>XML (Data Interchange)</SVEXPORTFORMAT>
        <SVCOMPANYNAME>%[3]s</SVCOMPANYNAME>
      </STATICVARIABLES>
      <TDL>
        <TDLMESSAGE>
          <REPORT NAME="%[1]sExport">
            <FORMS>%[1]sForm</FORMS>
          </REPORT>
          <FORM NAME="%[1]sForm">
            <PARTS>%[1]sPart</PARTS>
          </FORM>
          <PART NAME="%[1]sPart">
            <LINES>%[1]sLine</LINES>
            <REPEAT>%[1]sLine : %[1]sCollection</REPEAT>
            <SCROLLED>Vertical</SCROLLED>
          </PART>
          <LINE NAME="%[1]sLine">
            <FIELDS>master_guid,master_name,master_alias,master_parent,master_description</FIELDS>
          </LINE>
          <FIELD NAME="master_guid"><SET>$Guid</SET></FIELD>
          <FIELD NAME="master_name"><SET>$Name</SET></FIELD>
          <FIELD NAME="master_alias"><SET>$Alias</SET></FIELD>
          <FIELD NAME="master_parent"><SET>$Parent</SET></FIELD>
          <FIELD NAME="master_description"><SET>$Description</SET></FIELD>
          <COLLECTION NAME="%[1]sCollection">
            <TYPE>%[2]s</TYPE>
            <COMPANY>%[3]s</COMPANY>
            <FETCH>Guid</FETCH>
            <FETCH>Name</FETCH>
            <FETCH>Alias</FETCH>
            <FETCH>Parent</FETCH>
            <FETCH>Description</FETCH>
          </COLLECTION>
        </TDLMESSAGE>
      </TDL>
    </DESC>
  </BODY>
</ENVELOPE>`, kind, collectionType, company)
}
